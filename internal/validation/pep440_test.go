package validation

import "testing"

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"1.0", false},
		{"2.0.0rc1", false},
		{"1.0.post1.dev2", false},
		{"1!2.0", false},
		{"1.0+ubuntu.1", false},
		{"banana", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseVersion(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSpecifierSet(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"", false},
		{">=3.8", false},
		{">=3.8, <4", false},
		{">=3.8,,<4", false},
		{"~=1.4.2", false},
		{"==2.8.*", false},
		{"!=3.0.*", false},
		{"3.8", true},
		{"*", true},
		{"~=1", true},
		{">=1.0.*", true},
		{">=3.8 || <2", true},
		{">=banana", true},
		{">=", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := validateSpecifierSet(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSpecifierSet(%q) error = %v, wantErr %v", tt.spec, err, tt.wantErr)
			}
			if err != nil && err != errInvalidSpecifier {
				t.Errorf("validateSpecifierSet(%q) error = %v, want errInvalidSpecifier", tt.spec, err)
			}
		})
	}
}
