package ftp

import (
	"net"
	"testing"
)

func TestParsePortArgument(t *testing.T) {
	addr, err := parsePortArgument("192,168,1,9,7,138")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if addr.IP.String() != "192.168.1.9" {
		t.Errorf("expected IP 192.168.1.9, got %s", addr.IP)
	}
	if addr.Port != 7*256+138 {
		t.Errorf("expected port %d, got %d", 7*256+138, addr.Port)
	}
}

func TestParsePortArgument_Invalid(t *testing.T) {
	cases := []string{
		"",
		"1,2,3,4,5",          // too few fields
		"1,2,3,4,5,6,7",      // too many fields
		"300,2,3,4,5,6",      // octet out of range
		"1,2,3,4,-1,6",       // negative
		"1,2,3,4,0,0",        // zero port
		"a,b,c,d,e,f",        // not numbers
		"1, 2, 3, 4, 5, six", // trailing garbage
	}
	for _, arg := range cases {
		if _, err := parsePortArgument(arg); err == nil {
			t.Errorf("expected error for %q", arg)
		}
	}
}

func TestParsePortArgument_AllowsSpaces(t *testing.T) {
	addr, err := parsePortArgument("10, 0, 0, 1, 4, 0")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if addr.Port != 1024 {
		t.Errorf("expected port 1024, got %d", addr.Port)
	}
}

func TestFormatPassiveAddress(t *testing.T) {
	got := formatPassiveAddress(net.IPv4(10, 1, 2, 3), 1930)
	want := "10,1,2,3,7,138"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestFormatPassiveAddress_IPv6FallsBack(t *testing.T) {
	got := formatPassiveAddress(net.ParseIP("::1"), 1024)
	want := "127,0,0,1,4,0"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		line string
		verb string
		arg  string
	}{
		{"LIST", "LIST", ""},
		{"list -la /pub", "LIST", "-la /pub"},
		{"  stor  file.txt ", "STOR", "file.txt"},
		{"", "", ""},
		{"   ", "", ""},
	}
	for _, tc := range cases {
		verb, arg := splitCommand(tc.line)
		if verb != tc.verb || arg != tc.arg {
			t.Errorf("splitCommand(%q) = (%q, %q), want (%q, %q)", tc.line, verb, arg, tc.verb, tc.arg)
		}
	}
}
