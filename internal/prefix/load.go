package prefix

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Datasets names the external reference files a table is built from.
type Datasets struct {
	LandlineCSV      string // code;name;active-flag, with header
	MobileCSV        string // code;name, no header
	CountryCodesJSON string // ISO2 -> dialing code, e.g. "DE": "+49"
	CountryNamesJSON string // ISO2 -> display name, e.g. "DE": "Germany"
}

// Load builds the full prefix table: built-in service numbers, the landline
// and mobile datasets, and the derived country-code table.
func Load(countryCode string, ds Datasets) (*Table, error) {
	t := NewTable(countryCode)
	t.addServiceNumbers()
	if err := t.loadLandline(ds.LandlineCSV); err != nil {
		return nil, fmt.Errorf("landline prefixes: %w", err)
	}
	if err := t.loadMobile(ds.MobileCSV); err != nil {
		return nil, fmt.Errorf("mobile prefixes: %w", err)
	}
	if err := t.loadCountries(ds.CountryCodesJSON, ds.CountryNamesJSON); err != nil {
		return nil, fmt.Errorf("country codes: %w", err)
	}
	return t, nil
}

// Hand-maintained national service prefixes. These are not part of the
// landline dataset but must not be rated as fake.
func (t *Table) addServiceNumbers() {
	t.add("0800", "Freephone", KindFreephone)
	t.add("0900", "Premium service", KindPayphone)
	t.add("0137", "Mass traffic", KindSpecial)
	t.add("0180", "Service number", KindSpecial)
	t.add("0181", "International VPN", KindSpecial)
	t.add("0700", "Personal number", KindSpecial)
	t.add("0110", "Emergency", KindSpecial)
	t.add("0112", "Emergency", KindSpecial)
	t.add("012", "Reserved", KindReserve)
	t.add("0164", "Pager", KindSpecial)
	t.add("0168", "Pager", KindSpecial)
	t.add("0169", "Pager", KindSpecial)
}

// loadLandline reads the regulator's area-code dataset. The header order is
// asserted so a silently reordered dataset fails loudly instead of loading
// garbage.
func (t *Table) loadLandline(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return err
	}
	for i, row := range rows {
		if i == 0 {
			if len(row) < 3 || row[0] != "Ortsnetzkennzahl" || row[1] != "Ortsnetzname" || row[2] != "KennzeichenAktiv" {
				return fmt.Errorf("unexpected landline dataset header: %v", row)
			}
			continue
		}
		if len(row) != 3 { // trailing EOF marker row
			continue
		}
		kind := KindLandline
		if row[2] != "1" {
			kind = KindLandlineInactive
		}
		t.add("0"+row[0], row[1], kind)
	}
	return nil
}

// loadMobile reads the mobile-range dataset. Codes may be written as
// "(0)15x" or with dashes and are normalized to plain digits.
func (t *Table) loadMobile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return err
	}
	for _, row := range rows {
		if len(row) != 2 {
			continue
		}
		code := strings.ReplaceAll(row[0], "-", "")
		code = strings.ReplaceAll(code, "(0)", "0")
		t.add(code, row[1], KindMobile)
	}
	return nil
}

// loadCountries joins the ISO2->dialing-code dataset with the ISO2->name
// dataset. Codes written as "X and Y" become two entries; countries sharing
// one code are concatenated with a comma ("1" covers Canada, United States,
// ...).
func (t *Table) loadCountries(codesPath, namesPath string) error {
	codes := map[string]string{}
	if err := readJSON(codesPath, &codes); err != nil {
		return err
	}
	names := map[string]string{}
	if err := readJSON(namesPath, &names); err != nil {
		return err
	}

	// Iterate ISO codes sorted so shared-code name concatenation is stable.
	iso := make([]string, 0, len(codes))
	for k := range codes {
		iso = append(iso, k)
	}
	sort.Strings(iso)

	byCode := map[string]string{}
	for _, iso2 := range iso {
		code := strings.TrimSpace(codes[iso2])
		if code == "" { // a few territories have no dialing code
			continue
		}
		name := names[iso2]
		code = strings.ReplaceAll(code, "+", "")
		code = strings.ReplaceAll(code, "-", "")
		for _, c := range strings.Split(code, " and ") {
			if prev, ok := byCode[c]; ok {
				name = prev + ", " + name
			}
			byCode[c] = name
		}
	}
	for code, name := range byCode {
		t.add("00"+code, name, KindCountry)
	}
	return nil
}

func readJSON(path string, v any) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, v)
}
