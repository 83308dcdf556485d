package prefix

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testTable(t *testing.T) *Table {
	t.Helper()
	dir := t.TempDir()
	ds := Datasets{
		LandlineCSV: writeFile(t, dir, "onb.csv",
			"Ortsnetzkennzahl;Ortsnetzname;KennzeichenAktiv\n"+
				"30;Berlin;1\n"+
				"201;Essen;1\n"+
				"7151;Waiblingen;1\n"+
				"7191;Backnang;1\n"+
				"7235;Altbach;0\n"),
		MobileCSV: writeFile(t, dir, "rnb.csv",
			"(0)151;Telekom\n"+
				"(0)157;E-Plus\n"+
				"(0)175;Telekom\n"+
				"(0)15796;TelcoVillage\n"),
		CountryCodesJSON: writeFile(t, dir, "phone.json",
			`{"DE":"+49","BF":"+226","GB":"+44","JE":"+44-1534","AX":"+358-18","US":"+1","CA":"+1","PR":"+1787 and 1939"}`),
		CountryNamesJSON: writeFile(t, dir, "names.json",
			`{"DE":"Germany","BF":"Burkina Faso","GB":"United Kingdom","JE":"Jersey","AX":"Aland Islands","US":"United States","CA":"Canada","PR":"Puerto Rico"}`),
	}
	table, err := Load("0049", ds)
	require.NoError(t, err)
	return table
}

func TestResolveLongestPrefixWins(t *testing.T) {
	table := testTable(t)
	e := table.Resolve("07191000")
	require.NotNil(t, e)
	require.Equal(t, "Backnang", e.Name)
	require.Equal(t, KindLandline, e.Kind)

	// 0715... must hit Waiblingen (07151), never a shorter unrelated code
	e = table.Resolve("0715155555")
	require.NotNil(t, e)
	require.Equal(t, "Waiblingen", e.Name)
}

func TestResolveCountryCodeQualification(t *testing.T) {
	table := testTable(t)
	e := table.Resolve("00497191952011")
	require.NotNil(t, e)
	require.Equal(t, "Backnang", e.Name)
	require.Equal(t, KindLandline, e.Kind)
}

func TestResolveCountries(t *testing.T) {
	table := testTable(t)

	e := table.Resolve("00226123456")
	require.NotNil(t, e)
	require.Equal(t, "Burkina Faso", e.Name)
	require.Equal(t, KindCountry, e.Kind)

	// 8-digit country prefix beats the 4-digit one it nests inside
	e = table.Resolve("004415341234")
	require.NotNil(t, e)
	require.Equal(t, "Jersey", e.Name)

	e = table.Resolve("00441234")
	require.NotNil(t, e)
	require.Equal(t, "United Kingdom", e.Name)

	// 7-digit split off an "and" pair
	e = table.Resolve("001787999")
	require.NotNil(t, e)
	require.Equal(t, "Puerto Rico", e.Name)

	// shared dialing code concatenates the country names
	e = table.Resolve("0012125550100")
	require.NotNil(t, e)
	require.Contains(t, e.Name, "Canada")
	require.Contains(t, e.Name, "United States")
}

func TestResolveMobileAndInactive(t *testing.T) {
	table := testTable(t)

	e := table.Resolve("01751234567")
	require.NotNil(t, e)
	require.Equal(t, KindMobile, e.Kind)

	// 6-digit mobile range resolves ahead of the 4-digit 0157 entry
	e = table.Resolve("015796123")
	require.NotNil(t, e)
	require.Equal(t, "TelcoVillage", e.Name)

	e = table.Resolve("07235999")
	require.NotNil(t, e)
	require.Equal(t, KindLandlineInactive, e.Kind)
}

func TestResolveServiceNumbers(t *testing.T) {
	table := testTable(t)
	e := table.Resolve("08004400222")
	require.NotNil(t, e)
	require.Equal(t, KindFreephone, e.Kind)
}

func TestNameFallbacks(t *testing.T) {
	table := testTable(t)
	require.Equal(t, "Backnang", table.Name("07191952011"))
	require.Equal(t, NameUnknown, table.Name("09460123"))   // domestic shape, no such prefix
	require.Equal(t, NameAbroad, table.Name("00999123456")) // international, not in table
}

func TestResolveShortInput(t *testing.T) {
	table := testTable(t)
	require.Nil(t, table.Resolve(""))
	require.Nil(t, table.Resolve("07"))
}

func TestLoadRejectsReorderedHeader(t *testing.T) {
	dir := t.TempDir()
	ds := Datasets{
		LandlineCSV:      writeFile(t, dir, "onb.csv", "Ortsnetzname;Ortsnetzkennzahl;KennzeichenAktiv\nBacknang;7191;1\n"),
		MobileCSV:        writeFile(t, dir, "rnb.csv", ""),
		CountryCodesJSON: writeFile(t, dir, "phone.json", `{}`),
		CountryNamesJSON: writeFile(t, dir, "names.json", `{}`),
	}
	_, err := Load("0049", ds)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "header"))
}
