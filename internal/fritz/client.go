// Package fritz is a thin TR-064 adapter for the router's phonebook and
// telephony services. Only the handful of calls the screener needs are
// implemented; everything else about the vendor protocol stays out of scope.
package fritz

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const controlPath = "/upnp/control"

// Client talks SOAP to one router. It implements directory.Client.
type Client struct {
	baseURL  string // e.g. http://fritz.box:49000
	username string
	password string
	http     *http.Client
}

func New(address string, port int, username, password string) *Client {
	address = strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://")
	return &Client{
		baseURL:  fmt.Sprintf("http://%s:%d", address, port),
		username: username,
		password: password,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type soapEnvelope struct {
	Body struct {
		Inner []byte `xml:",innerxml"`
	} `xml:"Body"`
}

// callAction performs one SOAP action and returns the raw body payload for
// argument extraction.
func (c *Client) callAction(service, path, action string, args map[string]string) ([]byte, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>`)
	fmt.Fprintf(&b, `<u:%s xmlns:u="urn:dslforum-org:service:%s">`, action, service)
	for k, v := range args {
		fmt.Fprintf(&b, "<%s>%s</%s>", k, v, k)
	}
	fmt.Fprintf(&b, `</u:%s></s:Body></s:Envelope>`, action)

	req, err := http.NewRequest(http.MethodPost, c.baseURL+controlPath+path, bytes.NewBufferString(b.String()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SoapAction", fmt.Sprintf("urn:dslforum-org:service:%s#%s", service, action))
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: status %d", service, action, resp.StatusCode)
	}
	var env soapEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%s %s: %w", service, action, err)
	}
	return env.Body.Inner, nil
}

// argument pulls one <Name>value</Name> out of a SOAP response body.
func argument(body []byte, name string) string {
	begin, end := "<"+name+">", "</"+name+">"
	s := string(body)
	i := strings.Index(s, begin)
	if i < 0 {
		return ""
	}
	s = s[i+len(begin):]
	j := strings.Index(s, end)
	if j < 0 {
		return ""
	}
	return html.UnescapeString(s[:j])
}

// AreaCode returns the box's configured local area code (prefix + digits).
func (c *Client) AreaCode() (string, error) {
	body, err := c.callAction("X_VoIP:1", "/x_voip", "X_AVM-DE_GetVoIPCommonAreaCode", nil)
	if err != nil {
		return "", err
	}
	return argument(body, "NewX_AVM-DE_OKZPrefix") + argument(body, "NewX_AVM-DE_OKZ"), nil
}

// CountryCode returns the box's configured country code (prefix + digits).
func (c *Client) CountryCode() (string, error) {
	body, err := c.callAction("X_VoIP:1", "/x_voip", "X_AVM-DE_GetVoIPCommonCountryCode", nil)
	if err != nil {
		return "", err
	}
	return argument(body, "NewX_AVM-DE_LKZPrefix") + argument(body, "NewX_AVM-DE_LKZ"), nil
}

// ListExists asks the box for its phonebook id list.
func (c *Client) ListExists(id int) (bool, error) {
	body, err := c.callAction("X_AVM-DE_OnTel:1", "/x_contact", "GetPhonebookList", nil)
	if err != nil {
		return false, err
	}
	for _, s := range strings.Split(argument(body, "NewPhonebookList"), ",") {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n == id {
			return true, nil
		}
	}
	return false, nil
}

// phonebook XML as served from the box's phonebook URL
type phonebookXML struct {
	Contacts []struct {
		Person struct {
			RealName string `xml:"realName"`
		} `xml:"person"`
		Telephony struct {
			Numbers []struct {
				Value string `xml:",chardata"`
			} `xml:"number"`
		} `xml:"telephony"`
	} `xml:"phonebook>contact"`
}

// Numbers downloads one phonebook and flattens it to number -> name.
// Internal numbers (leading "**", e.g. alarm clocks) are dropped.
func (c *Client) Numbers(id int) (map[string]string, error) {
	body, err := c.callAction("X_AVM-DE_OnTel:1", "/x_contact", "GetPhonebook",
		map[string]string{"NewPhonebookID": strconv.Itoa(id)})
	if err != nil {
		return nil, err
	}
	url := argument(body, "NewPhonebookURL")
	if url == "" {
		return nil, fmt.Errorf("phonebook %d: no url in response", id)
	}
	resp, err := c.http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var pb phonebookXML
	if err := xml.Unmarshal(raw, &pb); err != nil {
		return nil, fmt.Errorf("phonebook %d: %w", id, err)
	}
	out := make(map[string]string)
	for _, contact := range pb.Contacts {
		for _, nr := range contact.Telephony.Numbers {
			// numbers may contain spaces like "<area code> <number>"
			number := strings.ReplaceAll(strings.TrimSpace(nr.Value), " ", "")
			if number == "" || strings.HasPrefix(number, "**") {
				continue
			}
			out[number] = contact.Person.RealName
		}
	}
	return out, nil
}

// AddEntry appends a contact to a phonebook via SetPhonebookEntry.
func (c *Client) AddEntry(id int, name, number string) error {
	entry := fmt.Sprintf(`<Envelope><contact><category>0</category>`+
		`<person><realName>%s</realName></person>`+
		`<telephony nid="1"><number type="home" prio="1" id="0">%s</number></telephony>`+
		`</contact></Envelope>`, html.EscapeString(name), html.EscapeString(number))
	_, err := c.callAction("X_AVM-DE_OnTel:1", "/x_contact", "SetPhonebookEntry", map[string]string{
		"NewPhonebookID":        strconv.Itoa(id),
		"NewPhonebookEntryID":   "",
		"NewPhonebookEntryData": entry,
	})
	return err
}
