package qr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dunamismax/artifactkit/internal/domain"
)

// URL normalises a link, adding https:// when no scheme is present.
func URL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is empty", domain.ErrInvalidParameters)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid url %q", domain.ErrInvalidParameters, raw)
	}
	return u.String(), nil
}

type WiFi struct {
	SSID     string
	Password string
	Security string // WPA, WEP or nopass
	Hidden   bool
}

func (w WiFi) Payload() (string, error) {
	if w.SSID == "" {
		return "", fmt.Errorf("%w: wifi ssid is empty", domain.ErrInvalidParameters)
	}
	sec := strings.ToUpper(w.Security)
	switch sec {
	case "":
		sec = "WPA"
	case "WPA", "WEP":
	case "NOPASS":
		sec = "nopass"
	default:
		return "", fmt.Errorf("%w: wifi security %q", domain.ErrInvalidParameters, w.Security)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "WIFI:T:%s;S:%s;", sec, escapeWiFi(w.SSID))
	if sec != "nopass" {
		fmt.Fprintf(&sb, "P:%s;", escapeWiFi(w.Password))
	}
	if w.Hidden {
		sb.WriteString("H:true;")
	}
	sb.WriteString(";")
	return sb.String(), nil
}

var wifiEscaper = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `,`, `\,`, `:`, `\:`, `"`, `\"`)

func escapeWiFi(s string) string { return wifiEscaper.Replace(s) }

type VCard struct {
	FirstName    string
	LastName     string
	Phone        string
	Email        string
	Organization string
	Title        string
	URL          string
}

func (v VCard) Payload() (string, error) {
	if strings.TrimSpace(v.FirstName+v.LastName) == "" {
		return "", fmt.Errorf("%w: vcard needs a name", domain.ErrInvalidParameters)
	}
	lines := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		fmt.Sprintf("N:%s;%s;;;", v.LastName, v.FirstName),
		"FN:" + strings.TrimSpace(v.FirstName+" "+v.LastName),
	}
	for _, f := range []struct{ key, val string }{
		{"ORG", v.Organization},
		{"TITLE", v.Title},
		{"TEL", v.Phone},
		{"EMAIL", v.Email},
		{"URL", v.URL},
	} {
		if f.val != "" {
			lines = append(lines, f.key+":"+f.val)
		}
	}
	lines = append(lines, "END:VCARD")
	return strings.Join(lines, "\n"), nil
}

func Email(to, subject, body string) (string, error) {
	if !strings.Contains(to, "@") {
		return "", fmt.Errorf("%w: invalid email address %q", domain.ErrInvalidParameters, to)
	}
	q := make([]string, 0, 2)
	if subject != "" {
		q = append(q, "subject="+url.PathEscape(subject))
	}
	if body != "" {
		q = append(q, "body="+url.PathEscape(body))
	}
	out := "mailto:" + to
	if len(q) > 0 {
		out += "?" + strings.Join(q, "&")
	}
	return out, nil
}

func SMS(number, message string) (string, error) {
	if strings.TrimSpace(number) == "" {
		return "", fmt.Errorf("%w: sms number is empty", domain.ErrInvalidParameters)
	}
	return "SMSTO:" + number + ":" + message, nil
}

func Phone(number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", fmt.Errorf("%w: phone number is empty", domain.ErrInvalidParameters)
	}
	return "tel:" + number, nil
}

// Kinds lists the payload kinds Build understands.
var Kinds = []string{"text", "url", "wifi", "vcard", "email", "sms", "phone"}

// Build encodes named fields as the payload for kind. Field names are the
// lowercase snake_case forms of the builder fields, e.g. ssid, first_name.
func Build(kind string, f map[string]string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "text":
		if f["text"] == "" {
			return "", fmt.Errorf("%w: text is empty", domain.ErrInvalidParameters)
		}
		return f["text"], nil
	case "url":
		return URL(f["url"])
	case "wifi":
		hidden := false
		if v := f["hidden"]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return "", fmt.Errorf("%w: wifi hidden must be true or false", domain.ErrInvalidParameters)
			}
			hidden = b
		}
		return WiFi{SSID: f["ssid"], Password: f["password"], Security: f["security"], Hidden: hidden}.Payload()
	case "vcard":
		return VCard{
			FirstName:    f["first_name"],
			LastName:     f["last_name"],
			Phone:        f["phone"],
			Email:        f["email"],
			Organization: f["organization"],
			Title:        f["title"],
			URL:          f["url"],
		}.Payload()
	case "email":
		return Email(f["to"], f["subject"], f["body"])
	case "sms":
		return SMS(f["number"], f["message"])
	case "phone":
		return Phone(f["number"])
	default:
		return "", fmt.Errorf("%w: qr payload kind %q, want one of %s", domain.ErrInvalidParameters, kind, strings.Join(Kinds, ", "))
	}
}
