package fritz

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func soapBody(inner string) string {
	return `<?xml version="1.0"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>` +
		inner + `</s:Body></s:Envelope>`
}

// newTestClient starts a fake router and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	host, portStr, _ := strings.Cut(strings.TrimPrefix(srv.URL, "http://"), ":")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("test server url %q: %v", srv.URL, err)
	}
	return New(host, port, "admin", "secret"), srv
}

func TestAreaAndCountryCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "secret" {
			t.Errorf("missing credentials on %s", r.URL.Path)
		}
		switch {
		case strings.Contains(r.Header.Get("SoapAction"), "GetVoIPCommonAreaCode"):
			fmt.Fprint(w, soapBody(`<u:X_AVM-DE_GetVoIPCommonAreaCodeResponse>`+
				`<NewX_AVM-DE_OKZPrefix>0</NewX_AVM-DE_OKZPrefix><NewX_AVM-DE_OKZ>7191</NewX_AVM-DE_OKZ>`+
				`</u:X_AVM-DE_GetVoIPCommonAreaCodeResponse>`))
		case strings.Contains(r.Header.Get("SoapAction"), "GetVoIPCommonCountryCode"):
			fmt.Fprint(w, soapBody(`<u:X_AVM-DE_GetVoIPCommonCountryCodeResponse>`+
				`<NewX_AVM-DE_LKZPrefix>00</NewX_AVM-DE_LKZPrefix><NewX_AVM-DE_LKZ>49</NewX_AVM-DE_LKZ>`+
				`</u:X_AVM-DE_GetVoIPCommonCountryCodeResponse>`))
		default:
			t.Errorf("unexpected action %q", r.Header.Get("SoapAction"))
		}
	})

	area, err := c.AreaCode()
	if err != nil {
		t.Fatalf("area code: %v", err)
	}
	if area != "07191" {
		t.Fatalf("area code = %q", area)
	}
	country, err := c.CountryCode()
	if err != nil {
		t.Fatalf("country code: %v", err)
	}
	if country != "0049" {
		t.Fatalf("country code = %q", country)
	}
}

func TestListExists(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, soapBody(`<u:GetPhonebookListResponse>`+
			`<NewPhonebookList>0,1,2</NewPhonebookList></u:GetPhonebookListResponse>`))
	})

	for id, want := range map[int]bool{0: true, 2: true, 5: false} {
		ok, err := c.ListExists(id)
		if err != nil {
			t.Fatalf("list exists %d: %v", id, err)
		}
		if ok != want {
			t.Errorf("ListExists(%d) = %t", id, ok)
		}
	}
}

func TestNumbers(t *testing.T) {
	var srv *httptest.Server
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/pb.xml":
			fmt.Fprint(w, `<phonebooks><phonebook name="Telefonbuch">
				<contact><person><realName>Oma</realName></person>
					<telephony><number type="home">07191 952011</number></telephony></contact>
				<contact><person><realName>Wecker</realName></person>
					<telephony><number type="intern">**610</number></telephony></contact>
				<contact><person><realName>Arzt</realName></person>
					<telephony><number type="work">030111222</number><number type="mobile">0151123456</number></telephony></contact>
			</phonebook></phonebooks>`)
		case strings.Contains(r.Header.Get("SoapAction"), "GetPhonebook"):
			fmt.Fprint(w, soapBody(`<u:GetPhonebookResponse><NewPhonebookURL>`+
				srv.URL+`/pb.xml</NewPhonebookURL></u:GetPhonebookResponse>`))
		default:
			http.NotFound(w, r)
		}
	})

	numbers, err := c.Numbers(0)
	if err != nil {
		t.Fatalf("numbers: %v", err)
	}
	want := map[string]string{
		"07191952011": "Oma", // space stripped
		"030111222":   "Arzt",
		"0151123456":  "Arzt", // every number of a contact is indexed
	}
	if len(numbers) != len(want) {
		t.Fatalf("numbers = %v", numbers)
	}
	for nr, name := range want {
		if numbers[nr] != name {
			t.Errorf("numbers[%q] = %q, want %q", nr, numbers[nr], name)
		}
	}
	if _, ok := numbers["**610"]; ok {
		t.Error("internal number not dropped")
	}
}

func TestAddEntry(t *testing.T) {
	var gotBody string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		fmt.Fprint(w, soapBody(`<u:SetPhonebookEntryResponse></u:SetPhonebookEntryResponse>`))
	})

	if err := c.AddEntry(1, "[Blocked] M&M Marketing", "030666777"); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if !strings.Contains(gotBody, "<NewPhonebookID>1</NewPhonebookID>") {
		t.Errorf("phonebook id missing: %s", gotBody)
	}
	if !strings.Contains(gotBody, "[Blocked] M&amp;M Marketing") {
		t.Errorf("name not escaped: %s", gotBody)
	}
	if !strings.Contains(gotBody, ">030666777</number>") {
		t.Errorf("number missing: %s", gotBody)
	}
}
