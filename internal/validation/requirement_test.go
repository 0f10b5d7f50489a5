package validation

import (
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// ParseRequirement
// ---------------------------------------------------------------------------

func TestParseRequirement(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Requirement
	}{
		{"bare name", "requests", Requirement{Name: "requests"}},
		{"specifier", "requests>=2.0", Requirement{Name: "requests", Specifier: ">=2.0"}},
		{"parenthesised specifier", "requests (>=2.0, <3)", Requirement{Name: "requests", Specifier: ">=2.0, <3"}},
		{"extras", "requests[security, socks]>=2.8.1,==2.8.*",
			Requirement{Name: "requests", Extras: []string{"security", "socks"}, Specifier: ">=2.8.1,==2.8.*"}},
		{"marker", `pywin32 >1.0 ; sys_platform == "win32"`,
			Requirement{Name: "pywin32", Specifier: ">1.0", Marker: `sys_platform == "win32"`}},
		{"url", "pip @ https://github.com/pypa/pip/archive/1.3.1.zip",
			Requirement{Name: "pip", URL: "https://github.com/pypa/pip/archive/1.3.1.zip"}},
		{"url with marker", `name @ https://example.com/x.whl ; python_version >= "3.8"`,
			Requirement{Name: "name", URL: "https://example.com/x.whl", Marker: `python_version >= "3.8"`}},
		{"compound marker", `foo; extra == "test" and (os_name == "nt" or os_name == "posix")`,
			Requirement{Name: "foo", Marker: `extra == "test" and (os_name == "nt" or os_name == "posix")`}},
		{"in marker", `foo; "linux" in sys_platform`,
			Requirement{Name: "foo", Marker: `"linux" in sys_platform`}},
		{"not in marker", `foo; os_name not in 'nt'`,
			Requirement{Name: "foo", Marker: `os_name not in 'nt'`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequirement(tt.input)
			if err != nil {
				t.Fatalf("ParseRequirement(%q) error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(*got, tt.want) {
				t.Errorf("ParseRequirement(%q) = %+v, want %+v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestParseRequirement_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"operator only", ">=1.0"},
		{"unterminated extras", "requests[security"},
		{"bad extra", "requests[-x]"},
		{"dangling operator", "requests >= "},
		{"bare version", "requests 2.0"},
		{"unterminated parenthesis", "requests (>=2.0"},
		{"empty url", "foo @ "},
		{"relative url", "foo @ foo.whl"},
		{"text after url", "foo @ https://example.com/x.whl extra"},
		{"unknown marker variable", `foo; bogus == "x"`},
		{"incomplete marker", "foo; os_name =="},
		{"empty marker", "foo;"},
		{"unbalanced marker", `foo; (os_name == "nt"`},
		{"marker bad operator", `foo; os_name not "nt"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, err := ParseRequirement(tt.input); err == nil {
				t.Errorf("ParseRequirement(%q) = %+v, want error", tt.input, *got)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Python-style quoting used in messages
// ---------------------------------------------------------------------------

func TestPyRepr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "'plain'"},
		{"it's", `"it's"`},
		{`both ' and "`, `'both \' and "'`},
		{`back\slash`, `'back\\slash'`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := pyRepr(tt.in); got != tt.want {
				t.Errorf("pyRepr(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}

	if got := pyListRepr([]string{"a", "b"}); got != "['a', 'b']" {
		t.Errorf("pyListRepr() = %s", got)
	}
}
