package ops

import (
	"github.com/Ghasak/nvimTimeMachine.v2/internal/capsule"
	"github.com/Ghasak/nvimTimeMachine.v2/internal/config"
)

// Paths are the filesystem locations an invocation works on.
type Paths struct {
	CapsuleDir string
	App        string
	Sources    capsule.SourceSet
}

// ResolvePaths applies cfg to root: the capsule directory and any source
// overrides are taken relative to the home directory unless absolute.
func ResolvePaths(root capsule.RootContext, cfg *config.Config) Paths {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	app := cfg.AppName
	if app == "" {
		app = capsule.DefaultApp
	}

	p := Paths{
		CapsuleDir: root.Resolve(cfg.CapsuleDir),
		App:        app,
		Sources:    root.SourceSet(app),
	}
	if len(cfg.Sources) > 0 {
		p.Sources = make(capsule.SourceSet, len(cfg.Sources))
		for i, s := range cfg.Sources {
			p.Sources[i] = root.Resolve(s)
		}
	}
	return p
}
