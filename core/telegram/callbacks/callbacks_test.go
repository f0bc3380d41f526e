package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"nil", nil, "", ""},
		{"raw", &tele.Callback{Data: "donate_150"}, "donate_150", ""},
		{"unique", &tele.Callback{Unique: "menu", Data: "42"}, "menu", "42"},
		{"encoded", &tele.Callback{Data: "\fmenu|42"}, "menu", "42"},
	}
	for _, tc := range cases {
		key, payload := Parse(tc.cb)
		if key != tc.key || payload != tc.payload {
			t.Fatalf("%s: got (%q, %q), want (%q, %q)", tc.name, key, payload, tc.key, tc.payload)
		}
	}
}
