package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"ibakit/internal/catalog"
	"ibakit/internal/config"
	"ibakit/internal/decoder/fixture"
	"ibakit/internal/registry"
	"ibakit/internal/search"
	"ibakit/internal/session"
	"ibakit/internal/testutil"
)

const sampleFixture = `version: "7.3.2"
analog:
  - name: Motor_Speed
    group: Drives
  - name: Oil_Temp
    group: Hydraulics
digital:
  - name: Pump_Running
text:
  - name: Batch_ID
data:
  Motor_Speed: ["0", "120.5", "450"]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plant.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleFixture), 0644))
	return path
}

func testSession(t *testing.T) *session.Session {
	t.Helper()
	cfg := config.Defaults()
	cfg.History.DBPath = ""
	cfg.Tracing.Enabled = false
	s := session.New(fixture.New(), session.WithConfig(cfg))
	t.Cleanup(s.Close)
	return s
}

func TestDecoderFor(t *testing.T) {
	dec, err := decoderFor("fixture")
	require.NoError(t, err)
	require.NotNil(t, dec)

	dec, err = decoderFor("")
	require.NoError(t, err)
	require.NotNil(t, dec)

	_, err = decoderFor("pda")
	require.Error(t, err)
	require.Contains(t, err.Error(), "pda")
}

func TestLoadCatalogSuccess(t *testing.T) {
	quietFlag = true
	t.Cleanup(func() { quietFlag = false })

	s := testSession(t)
	cat, err := loadCatalog(s, writeFixture(t))
	require.NoError(t, err)
	require.Equal(t, "7.3.2", cat.Version)
	require.Equal(t, 4, cat.Len())
}

func TestLoadCatalogFailure(t *testing.T) {
	quietFlag = true
	t.Cleanup(func() { quietFlag = false })

	s := testSession(t)
	_, err := loadCatalog(s, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing.yaml")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, testutil.PlantCatalog().Build().Summarize())

	out := buf.String()
	require.Contains(t, out, "/data/plant.dat")
	require.Contains(t, out, "7.3.2")
	require.Contains(t, out, "Analog:")
	require.Contains(t, out, "Total:")
	require.Contains(t, out, "6")
}

func TestPrintTree(t *testing.T) {
	var buf bytes.Buffer
	printTree(&buf, testutil.PlantCatalog().Build())

	out := buf.String()
	require.Contains(t, out, "analog\n")
	require.Contains(t, out, "  Drives\n")
	require.Contains(t, out, "Motor_Speed")
	require.Contains(t, out, "  (ungrouped)\n")

	// kinds appear in catalog order
	require.Less(t, strings.Index(out, "analog"), strings.Index(out, "digital"))
	require.Less(t, strings.Index(out, "digital"), strings.Index(out, "text"))
}

type fakeSelector struct {
	cat *catalog.Catalog
	reg *registry.Registry
}

func (f *fakeSelector) Catalog() *catalog.Catalog    { return f.cat }
func (f *fakeSelector) Registry() *registry.Registry { return f.reg }

func (f *fakeSelector) Search(_ context.Context, pattern string) []catalog.Signal {
	return search.Run(f.cat, pattern)
}

func newFakeSelector() *fakeSelector {
	return &fakeSelector{cat: testutil.PlantCatalog().Build(), reg: registry.New()}
}

func TestSelectSignalsAll(t *testing.T) {
	exportAll = true
	t.Cleanup(func() { exportAll = false })

	sel := newFakeSelector()
	require.NoError(t, selectSignals(context.Background(), sel))
	require.Equal(t, 6, sel.reg.Len())
}

func TestSelectSignalsByPattern(t *testing.T) {
	exportSignals = []string{"speed"}
	t.Cleanup(func() { exportSignals = nil })

	sel := newFakeSelector()
	require.NoError(t, selectSignals(context.Background(), sel))
	require.Equal(t, 4, sel.reg.Len())
}

func TestSelectSignalsNoMatch(t *testing.T) {
	exportSignals = []string{"pressure"}
	t.Cleanup(func() { exportSignals = nil })

	sel := newFakeSelector()
	err := selectSignals(context.Background(), sel)
	require.Error(t, err)
	require.Contains(t, err.Error(), "pressure")
}

func TestSelectSignalsNothingRequested(t *testing.T) {
	sel := newFakeSelector()
	err := selectSignals(context.Background(), sel)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--signal or --all")
}

func TestPalettePrintsDefaultCycle(t *testing.T) {
	var buf bytes.Buffer
	printPalette(&buf, effectivePalette(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 10)
	require.Equal(t, "#0000FF", lines[0])
	require.Equal(t, "#800000", lines[9])
}

func TestPaletteOverrideWins(t *testing.T) {
	override := []string{"#111111", "#222222"}
	require.Equal(t, override, effectivePalette(override))
}

func TestPaletteSetPersistsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteDefaultConfig(path))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, runPalette(cmd, []string{"#112233", "#445566"}))
	require.Contains(t, buf.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var parsed struct {
		Registry struct {
			Palette []string `yaml:"palette"`
		} `yaml:"registry"`
	}
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	require.Equal(t, []string{"#112233", "#445566"}, parsed.Registry.Palette)
	require.Contains(t, string(data), "# ibakit Configuration", "template comments survive")
}

func TestPaletteSetRejectsBadColor(t *testing.T) {
	err := runPalette(&cobra.Command{}, []string{"red"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "red")
}

func TestHistoryLookupUnknownFile(t *testing.T) {
	orig := cfg
	cfg.History.DBPath = filepath.Join(t.TempDir(), "history.db")
	t.Cleanup(func() { cfg = orig })

	cmd := &cobra.Command{}
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, runHistory(cmd, []string{"plant.yaml"}))
	require.Contains(t, buf.String(), "never been loaded")
}

func TestSearchHelpListsStrategies(t *testing.T) {
	require.Contains(t, searchCmd.Long, "glob")
	require.Contains(t, searchCmd.Long, "regular expression")
	require.Contains(t, searchCmd.Long, "substring")
}
