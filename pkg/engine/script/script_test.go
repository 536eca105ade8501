package script_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtlint/virtlint/internal/testutil"
	"github.com/virtlint/virtlint/pkg/connect"
	"github.com/virtlint/virtlint/pkg/connect/testdriver"
	"github.com/virtlint/virtlint/pkg/engine"
	"github.com/virtlint/virtlint/pkg/engine/script"
	"github.com/virtlint/virtlint/pkg/lint"
)

const testDomain = `<domain type='kvm'>
  <name>test</name>
  <memory unit='KiB'>%d</memory>
  <os><type arch='%s' machine='%s'>hvm</type></os>
  <devices>
    <emulator>/usr/bin/qemu-system-x86_64</emulator>
  </devices>
</domain>`

func domain(memKiB int, arch, machine string) string {
	return fmt.Sprintf(testDomain, memKiB, arch, machine)
}

func writeScript(t *testing.T, dir, group, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, group, name+".star")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

// run validates desc with only the scripts in dir.
func run(t *testing.T, dir string, conn connect.Conn, desc string, strict bool) ([]lint.Warning, error) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	e := engine.New(
		engine.WithLogger(logger),
		engine.WithValidators(),
		engine.WithSources(script.NewSource([]string{dir}, logger)),
	)
	s := e.Open(conn)
	defer s.Close()

	if err := s.Validate(context.Background(), desc, nil, strict); err != nil {
		return nil, err
	}
	return s.Warnings()
}

func testConn(t *testing.T) connect.Conn {
	t.Helper()
	conn, err := connect.Open(context.Background(), testdriver.DefaultURI, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestSource_Validators(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common", "b_check", "pass")
	writeScript(t, dir, "common", "a_check", "pass")
	writeScript(t, dir, "extra", "other", "pass")
	writeScript(t, dir, ".hidden", "skipped", "pass")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "common", "README"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.star"), []byte("pass"), 0o600))

	validators, err := script.NewSource([]string{dir}, nil).Validators()
	require.NoError(t, err)

	var names []string
	for _, v := range validators {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"common/a_check", "common/b_check", "extra/other"}, names)
	assert.Equal(t, []string{"common", "common/a_check"}, validators[0].Tags)
}

func TestSource_EarlierDirectoryWins(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	path := writeScript(t, first, "common", "check", "pass")
	writeScript(t, second, "common", "check", "pass")
	writeScript(t, second, "common", "only_second", "pass")

	validators, err := script.NewSource([]string{first, second}, nil).Validators()
	require.NoError(t, err)
	require.Len(t, validators, 2)
	assert.Equal(t, "common/check", validators[0].Name)
	assert.Contains(t, validators[0].Description, path)
	assert.Equal(t, "common/only_second", validators[1].Name)
}

func TestSource_LogsShadowedScripts(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeScript(t, first, "common", "check", "pass")
	shadowed := writeScript(t, second, "common", "check", "pass")

	logger, logs := testutil.NewCaptureLogger(t)
	_, err := script.NewSource([]string{first, second}, logger).Validators()
	require.NoError(t, err)

	rec, ok := logs.Find("script shadowed")
	require.True(t, ok)
	assert.Equal(t, "common/check", rec.Attrs["tag"])
	assert.Equal(t, shadowed, rec.Attrs["path"])
}

func TestRun_PrintGoesToDebugLog(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common", "chatty", `print("checking", len(dom_xpath("//name")))`)

	logger, logs := testutil.NewCaptureLogger(t)
	e := engine.New(
		engine.WithLogger(logger),
		engine.WithValidators(),
		engine.WithSources(script.NewSource([]string{dir}, logger)),
	)
	s := e.Open(testConn(t))
	defer s.Close()

	require.NoError(t, s.Validate(context.Background(), fmt.Sprintf(testDomain, 1024, "x86_64", "pc"), nil, false))
	_, ok := logs.Find("checking 1")
	assert.True(t, ok)
}

func TestSource_MissingDirectory(t *testing.T) {
	validators, err := script.NewSource([]string{filepath.Join(t.TempDir(), "nope")}, nil).Validators()
	require.NoError(t, err)
	assert.Empty(t, validators)
}

func TestSource_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := script.NewSource([]string{file}, nil).Validators()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestSource_SyntaxError(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "common", "broken", "def (")

	_, err := script.NewSource([]string{dir}, nil).Validators()
	var loadErr *script.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, path, loadErr.File)
}

func TestCompile_UndefinedGlobal(t *testing.T) {
	_, err := script.Compile("x.star", "common", []byte("no_such_builtin()"))
	var loadErr *script.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "no_such_builtin")
}

func TestGlobals_MatchPredeclared(t *testing.T) {
	predeclared := script.Predeclared(nil)
	require.Len(t, script.Globals, len(predeclared))
	for _, g := range script.Globals {
		assert.True(t, predeclared.Has(g.Name), g.Name)
		assert.NotEmpty(t, g.Doc, g.Name)
	}

	for _, g := range script.Globals {
		_, err := script.Compile("x.star", "common", []byte("x = "+g.Name))
		assert.NoError(t, err, g.Name)
	}
}

func TestRun_AddWarning(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "zgroup", "check", `add_warning(WarningDomain_Node, WarningLevel_Notice, "hello")`)

	warnings, err := run(t, dir, nil, domain(1024, "x86_64", "pc"), false)
	require.NoError(t, err)
	assert.Equal(t, []lint.Warning{{
		Tags:   []string{"zgroup", "zgroup/check"},
		Domain: lint.DomainNode,
		Level:  lint.LevelNotice,
		Msg:    "hello",
	}}, warnings)
}

func TestRun_InvalidEnums(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "domain", src: `add_warning(7, WarningLevel_Error, "x")`, want: "invalid warning domain 7"},
		{name: "level", src: `add_warning(WarningDomain_Domain, -1, "x")`, want: "invalid warning level -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeScript(t, dir, "common", "check", tt.src)

			_, err := run(t, dir, nil, domain(1024, "x86_64", "pc"), false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Starlark error")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_Fail(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common", "check", `fail("boom")`)

	_, err := run(t, dir, nil, domain(1024, "x86_64", "pc"), false)
	var runErr *script.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Contains(t, err.Error(), "boom")
}

func TestRun_Bindings(t *testing.T) {
	src := `
def report(value):
    add_warning(WarningDomain_Domain, WarningLevel_Notice, str(value))

report(dom_xpath("//domain/name"))
report(dom_xpath("//domain/nothing"))
report(has_connection())
report(caps_xpath("count(//capabilities/host/topology/cells/cell)"))
report(cells_free_memory(1))
report(parse_memory("2", "MiB"))
report(domcaps_xpath("/domainCapabilities/machine"))
report("<domain" in dom_xml())
`
	dir := t.TempDir()
	writeScript(t, dir, "common", "check", src)

	warnings, err := run(t, dir, testConn(t), domain(1024, "x86_64", "q35"), false)
	require.NoError(t, err)

	var got []string
	for _, w := range warnings {
		got = append(got, w.Msg)
	}
	assert.ElementsMatch(t, []string{
		`["test"]`,
		`[]`,
		`True`,
		`["2"]`,
		`[2147483648]`,
		`2097152`,
		`["pc-q35-9.0"]`,
		`True`,
	}, got)
}

func TestRun_BindingsOffline(t *testing.T) {
	src := `
def report(value):
    add_warning(WarningDomain_Domain, WarningLevel_Notice, str(value))

report(has_connection())
report(caps_xpath("/capabilities"))
report(caps_xml())
report(domcaps_xpath("/domainCapabilities"))
report(cells_free_memory(0))
`
	dir := t.TempDir()
	writeScript(t, dir, "common", "check", src)

	warnings, err := run(t, dir, nil, domain(1024, "x86_64", "q35"), false)
	require.NoError(t, err)
	require.Len(t, warnings, 5)
	for _, w := range warnings {
		assert.Contains(t, []string{"False", "None"}, w.Msg)
	}
}

func TestRun_StrictOffline(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common", "check", `cells_free_memory(0)`)

	_, err := run(t, dir, nil, domain(1024, "x86_64", "q35"), true)
	require.ErrorIs(t, err, engine.ErrNoConnection)
	assert.Contains(t, err.Error(), "Starlark error")
}

func TestRun_DomainCapsLookupFailure(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common", "check", `
add_warning(WarningDomain_Node, WarningLevel_Warning, str(domcaps_xpath("/domainCapabilities")))
`)

	warnings, err := run(t, dir, testConn(t), domain(1024, "aarch64", "virt"), false)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "None", warnings[0].Msg)
}

func TestRun_ScriptSeesEachValidation(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "common", "check", `
add_warning(WarningDomain_Domain, WarningLevel_Notice, dom_xpath("//domain/memory")[0])
`)
	logger := testutil.NewTestLogger(t)
	e := engine.New(
		engine.WithLogger(logger),
		engine.WithValidators(),
		engine.WithSources(script.NewSource([]string{dir}, logger)),
	)

	for _, mem := range []int{1024, 2048} {
		s := e.Open(nil)
		require.NoError(t, s.Validate(context.Background(), domain(mem, "x86_64", "pc"), nil, false))
		warnings, err := s.Warnings()
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Equal(t, fmt.Sprint(mem), warnings[0].Msg)
		require.NoError(t, s.Close())
	}
}

// The bundled scripts mirror the built-in validators.
func TestBundledScripts(t *testing.T) {
	bundled := filepath.Join("..", "..", "..", "validators")
	rootPort := `<controller type='pci' index='1' model='pcie-root-port'><target chassis='1' port='0x10'/></controller>`

	tests := []struct {
		name string
		desc string
		want []string
	}{
		{
			name: "clean",
			desc: withDevices(domain(1048576, "x86_64", "q35"), rootPort),
		},
		{
			name: "no free root port",
			desc: domain(1048576, "x86_64", "q35"),
			want: []string{"common/check_pcie_root_ports"},
		},
		{
			name: "not enough free memory",
			desc: domain(3*1048576, "x86_64", "pc"),
			want: []string{"common/check_numa_free"},
		},
		{
			name: "does not fit",
			desc: domain(8*1048576, "x86_64", "pc"),
			want: []string{"common/check_numa", "common/check_numa_free"},
		},
		{
			name: "no emulator",
			desc: domain(1048576, "aarch64", "virt"),
			want: []string{"common/check_node_kvm"},
		},
	}

	conn := testConn(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings, err := run(t, bundled, conn, tt.desc, false)
			require.NoError(t, err)

			var got []string
			for _, w := range warnings {
				got = append(got, w.Tags[1])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func withDevices(desc, devices string) string {
	return strings.Replace(desc, "</devices>", devices+"\n  </devices>", 1)
}
