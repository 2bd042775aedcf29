package discovery

import "testing"

func TestRequestURLs(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		suffix  string
		kind    Kind
		wantDoc string
		wantSig string
	}{
		{
			name:    "server_list",
			baseURL: "https://disco.example.org",
			suffix:  ".minisig",
			kind:    KindServerList,
			wantDoc: "https://disco.example.org/server_list.json",
			wantSig: "https://disco.example.org/server_list.json.minisig",
		},
		{
			name:    "organization_list_with_trailing_slash",
			baseURL: "https://disco.example.org/",
			suffix:  ".minisig",
			kind:    KindOrganizationList,
			wantDoc: "https://disco.example.org/organization_list.json",
			wantSig: "https://disco.example.org/organization_list.json.minisig",
		},
		{
			name:    "custom_suffix",
			baseURL: "https://disco.example.org",
			suffix:  ".sig",
			kind:    KindServerList,
			wantDoc: "https://disco.example.org/server_list.json",
			wantSig: "https://disco.example.org/server_list.json.sig",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewRequest(tt.kind, tt.baseURL, tt.suffix)
			if got := req.DocumentURL(); got != tt.wantDoc {
				t.Errorf("DocumentURL() = %q, want %q", got, tt.wantDoc)
			}
			if got := req.SignatureURL(); got != tt.wantSig {
				t.Errorf("SignatureURL() = %q, want %q", got, tt.wantSig)
			}
		})
	}
}

func TestNewRequestAssignsUniqueIDs(t *testing.T) {
	a := NewRequest(KindServerList, "https://disco.example.org", ".minisig")
	b := NewRequest(KindServerList, "https://disco.example.org", ".minisig")
	if a.ID == b.ID {
		t.Error("two requests share an id")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"server_list", KindServerList, false},
		{"organization_list", KindOrganizationList, false},
		{"server_list.json", "", true},
		{"", "", true},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseKind(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKindFileName(t *testing.T) {
	if got := KindServerList.FileName(); got != "server_list.json" {
		t.Errorf("FileName() = %q", got)
	}
	if got := KindOrganizationList.FileName(); got != "organization_list.json" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusReady, "ready"},
		{StatusDeleted, "deleted"},
		{StatusFetchFailed, "fetch_failed"},
		{StatusSignatureInvalid, "signature_invalid"},
		{StatusMalformedCatalog, "malformed_catalog"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
