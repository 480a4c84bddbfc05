package validation

import (
	"testing"
)

func TestValidateContractName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "DecentralizedVideoPlatform", false},
		{"underscore", "_Video", false},
		{"dollar", "$Video", false},
		{"empty", "", true},
		{"leading digit", "1Video", true},
		{"path traversal", "../Video", true},
		{"space", "Video Platform", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContractName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContractName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateNetworkName(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"sepolia", false},
		{"goerli", false},
		{"base-sepolia", false},
		{"Sepolia", true},
		{"", true},
		{"9net", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateNetworkName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNetworkName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid lowercase", "0x5fbdb2315678afecb367f032d93f642f64180aa3", false},
		{"valid checksum", "0x5FbDB2315678afecb367f032d93F642f64180aa3", false},
		{"valid uppercase", "0x5FBDB2315678AFECB367F032D93F642F64180AA3", false},
		{"bad checksum", "0x5FbDB2315678afecb367f032d93F642f64180AA3", true},
		{"too short", "0x1234", true},
		{"no prefix", "5fbdb2315678afecb367f032d93f642f64180aa3ab", true},
		{"non-hex", "0xgggggggggggggggggggggggggggggggggggggggg", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")
	if err != nil {
		t.Fatalf("NormalizeAddress() error = %v", err)
	}
	if want := "0x5FbDB2315678afecb367f032d93F642f64180aa3"; got != want {
		t.Errorf("NormalizeAddress() = %v, want %v", got, want)
	}
}

func TestValidateTxHash(t *testing.T) {
	valid := "0x" + "ab12" + "00000000000000000000000000000000000000000000000000000000000f"
	if err := ValidateTxHash(valid); err != nil {
		t.Errorf("ValidateTxHash(%q) error = %v", valid, err)
	}
	if err := ValidateTxHash("0x1234"); err == nil {
		t.Error("ValidateTxHash(short) expected error")
	}
}

func TestParseChainID(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"5", 5, false},
		{"11155111", 11155111, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseChainID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChainID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChainID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateSolidityVersion(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"0.8.0", false},
		{"v0.8.19", false},
		{"0.8.0+commit.c7dfd78e", false},
		{"0.8", true},
		{"", true},
		{"latest", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := ValidateSolidityVersion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSolidityVersion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
