package walk

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeTree creates files (name → content) under root. Names ending in "/"
// are created as empty directories.
func makeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			require.NoError(t, os.MkdirAll(p, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestTree_DirectoriesAndFiles(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"a.txt":   "hi",
		"b/c.txt": "bye",
		"empty/":  "",
	})

	var got []Entry
	for e := range Tree(root, nil) {
		got = append(got, e)
	}

	require.Equal(t, []Entry{
		{Path: filepath.Join(root, "a.txt")},
		{Path: filepath.Join(root, "b"), Dir: true},
		{Path: filepath.Join(root, "b", "c.txt")},
		{Path: filepath.Join(root, "empty"), Dir: true},
	}, got)
}

func TestTree_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")

	n := 0
	for range Tree(root, nil) {
		n++
	}
	require.Zero(t, n)
}

func TestFiles_MultipleRoots(t *testing.T) {
	base := t.TempDir()
	one := filepath.Join(base, "one")
	two := filepath.Join(base, "two")
	makeTree(t, one, map[string]string{"x": "1", "sub/y": "2"})
	makeTree(t, two, map[string]string{"z": "3"})

	got := slices.Collect(Files(nil, one, two, filepath.Join(base, "missing")))
	require.Equal(t, []string{
		filepath.Join(one, "sub", "y"),
		filepath.Join(one, "x"),
		filepath.Join(two, "z"),
	}, got)
}

func TestFiles_FollowsFileSymlinks(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"real.txt": "data", "sub/x.lua": "x"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "broken")))
	require.NoError(t, os.Symlink(filepath.Join(root, "sub"), filepath.Join(root, "sublink")))

	got := slices.Collect(Files(nil, root))
	require.Equal(t, []string{
		filepath.Join(root, "link.txt"),
		filepath.Join(root, "real.txt"),
		filepath.Join(root, "sub", "x.lua"),
	}, got)
}

func TestTree_SymlinkedRoot(t *testing.T) {
	base := t.TempDir()
	dotfiles := filepath.Join(base, "dotfiles", "nvim")
	makeTree(t, dotfiles, map[string]string{"init.lua": "-- config", "lua/opts.lua": "x"})
	root := filepath.Join(base, "config", "nvim")
	require.NoError(t, os.MkdirAll(filepath.Dir(root), 0o755))
	require.NoError(t, os.Symlink(dotfiles, root))

	var got []Entry
	for e := range Tree(root, nil) {
		got = append(got, e)
	}
	require.Equal(t, []Entry{
		{Path: filepath.Join(root, "init.lua")},
		{Path: filepath.Join(root, "lua"), Dir: true},
		{Path: filepath.Join(root, "lua", "opts.lua")},
	}, got)
	require.Equal(t, 2, Count(root))
}

func TestFiles_SkipsUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	makeTree(t, root, map[string]string{"ok.txt": "fine", "secret.txt": "hidden"})
	secret := filepath.Join(root, "secret.txt")
	require.NoError(t, os.Chmod(secret, 0o000))
	t.Cleanup(func() { _ = os.Chmod(secret, 0o644) })

	got := slices.Collect(Files(nil, root))
	require.Equal(t, []string{filepath.Join(root, "ok.txt")}, got)
	require.Equal(t, 1, Count(root))
}

func TestFiles_SkipsUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"ok.txt":        "fine",
		"locked/secret": "hidden",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	got := slices.Collect(Files(nil, root))
	require.Equal(t, []string{filepath.Join(root, "ok.txt")}, got)
	require.Equal(t, 1, Count(root))
}

func TestFiles_EarlyBreak(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{"a": "", "b": "", "c": ""})

	var got []string
	for p := range Files(nil, root) {
		got = append(got, p)
		if len(got) == 2 {
			break
		}
	}
	require.Len(t, got, 2)
}

func TestCount_StableAcrossWalks(t *testing.T) {
	root := t.TempDir()
	makeTree(t, root, map[string]string{
		"init.lua":             "-- config",
		"lua/plugins/init.lua": "return {}",
		"lua/opts.lua":         "vim.o.number = true",
	})

	require.Equal(t, 3, Count(root))
	require.Equal(t, slices.Collect(Files(nil, root)), slices.Collect(Files(nil, root)))
}
