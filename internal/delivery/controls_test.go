package delivery

import "testing"

func TestControlDataRoundTrip(t *testing.T) {
	code, token, ok := ParseWatchData(WatchData("0042", "abc_-DEF"))
	if !ok || code != "0042" || token != "abc_-DEF" {
		t.Fatalf("watch round trip = (%q, %q, %v)", code, token, ok)
	}
	code, n, ok := ParseEpisodeData(EpisodeData("1307", 12))
	if !ok || code != "1307" || n != 12 {
		t.Fatalf("episode round trip = (%q, %d, %v)", code, n, ok)
	}
	if code, ok := ParseCheckData(CheckData("4821")); !ok || code != "4821" {
		t.Fatalf("check round trip = (%q, %v)", code, ok)
	}
	if code, ok := ParseCheckData(CheckData("")); !ok || code != "" {
		t.Fatalf("bare check = (%q, %v)", code, ok)
	}
}

func TestControlDataRejectsGarbage(t *testing.T) {
	for _, data := range []string{"w:", "w:12:tok", "w:4821", "w:4821:", "e:1307:0", "e:1307:x", "e:abcd:1", "adm:x"} {
		if _, _, ok := ParseWatchData(data); ok {
			t.Fatalf("ParseWatchData accepted %q", data)
		}
		if _, _, ok := ParseEpisodeData(data); ok {
			t.Fatalf("ParseEpisodeData accepted %q", data)
		}
	}
	if _, ok := ParseCheckData("chk:12"); ok {
		t.Fatal("ParseCheckData accepted a short code")
	}
}
