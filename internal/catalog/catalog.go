// Package catalog defines the typed server and organization catalogs
// and parses them from verified discovery JSON.
//
// Nothing in this package checks signatures. Callers must only hand it
// document bytes that have already passed verification; the discovery
// pipeline is the sole caller that does so in production.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Server types published in the server list.
const (
	ServerTypeInstituteAccess = "institute_access"
	ServerTypeSecureInternet  = "secure_internet"
)

var validate = validator.New()

// Catalog is implemented by the typed top-level documents this package
// parses. The pipeline returns values behind this interface so callers
// can plug in their own document types.
type Catalog interface {
	// Len reports the number of entries in the catalog.
	Len() int
}

// ServerList is the parsed server catalog.
type ServerList struct {
	Version int      `json:"v"`
	Servers []Server `json:"server_list" validate:"dive"`
}

// Len reports the number of servers in the list.
func (l *ServerList) Len() int { return len(l.Servers) }

// Server is a single endpoint entry in the server catalog.
type Server struct {
	BaseURL                   string        `json:"base_url" validate:"required,url"`
	Type                      string        `json:"server_type" validate:"required,oneof=institute_access secure_internet"`
	DisplayName               LocalizedText `json:"display_name,omitempty"`
	CountryCode               string        `json:"country_code,omitempty"`
	SupportContact            []string      `json:"support_contact,omitempty"`
	KeywordList               LocalizedText `json:"keyword_list,omitempty"`
	AuthenticationURLTemplate string        `json:"authentication_url_template,omitempty"`
}

// OrganizationList is the parsed organization catalog.
type OrganizationList struct {
	Version       int            `json:"v"`
	Organizations []Organization `json:"organization_list" validate:"dive"`
}

// Len reports the number of organizations in the list.
func (l *OrganizationList) Len() int { return len(l.Organizations) }

// Organization is a single entry in the organization catalog.
type Organization struct {
	OrgID              string        `json:"org_id" validate:"required"`
	DisplayName        LocalizedText `json:"display_name,omitempty"`
	SecureInternetHome string        `json:"secure_internet_home,omitempty" validate:"omitempty,url"`
	KeywordList        LocalizedText `json:"keyword_list,omitempty"`
}

// ParseServerList parses and validates a server catalog document.
func ParseServerList(doc []byte) (Catalog, error) {
	var list ServerList
	if err := json.Unmarshal(doc, &list); err != nil {
		return nil, fmt.Errorf("decode server list: %w", err)
	}
	if err := validate.Struct(&list); err != nil {
		return nil, fmt.Errorf("validate server list: %w", err)
	}
	return &list, nil
}

// ParseOrganizationList parses and validates an organization catalog
// document.
func ParseOrganizationList(doc []byte) (Catalog, error) {
	var list OrganizationList
	if err := json.Unmarshal(doc, &list); err != nil {
		return nil, fmt.Errorf("decode organization list: %w", err)
	}
	if err := validate.Struct(&list); err != nil {
		return nil, fmt.Errorf("validate organization list: %w", err)
	}
	return &list, nil
}
