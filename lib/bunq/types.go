// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import "encoding/json"

// Entity is one element of a response envelope. Kind is the single key
// the element was wrapped in on the wire ("Token", "UserPerson", ...).
type Entity interface {
	Kind() string
}

// User is implemented by every user entity kind.
type User interface {
	Entity
	UserID() int64
	Name() string
}

// MonetaryAccount is implemented by every monetary account kind.
type MonetaryAccount interface {
	Entity
	AccountID() int64
	Details() *MonetaryAccountDetails
}

// Amount is a currency value. bunq sends decimal strings.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Pointer is an alias (IBAN, email, phone) attached to an account.
type Pointer struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// ID is the bare {"Id":{"id":N}} entity returned by create calls.
type ID struct {
	ID int64 `json:"id"`
}

func (*ID) Kind() string { return "Id" }

// Token carries the installation or session token.
type Token struct {
	ID      int64  `json:"id"`
	Created string `json:"created"`
	Updated string `json:"updated"`
	Token   string `json:"token"`
}

func (*Token) Kind() string { return "Token" }

// ServerPublicKey carries the PEM the server signs responses with.
type ServerPublicKey struct {
	ServerPublicKey string `json:"server_public_key"`
}

func (*ServerPublicKey) Kind() string { return "ServerPublicKey" }

// Installation is returned by GET /installation.
type Installation struct {
	ID int64 `json:"id"`
}

func (*Installation) Kind() string { return "Installation" }

// DeviceServer is a registered device.
type DeviceServer struct {
	ID          int64  `json:"id"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	Description string `json:"description"`
	IP          string `json:"ip"`
	Status      string `json:"status"`
}

func (*DeviceServer) Kind() string { return "DeviceServer" }

// DevicePhone is a device registered through the bunq app. GET /device
// returns both kinds.
type DevicePhone struct {
	ID          int64  `json:"id"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	Description string `json:"description"`
	PhoneNumber string `json:"phone_number"`
	OS          string `json:"os"`
	Status      string `json:"status"`
}

func (*DevicePhone) Kind() string { return "DevicePhone" }

// UserPerson is a personal account holder.
type UserPerson struct {
	ID          int64  `json:"id"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	PublicUUID  string `json:"public_uuid"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	LegalName   string `json:"legal_name"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	SubStatus   string `json:"sub_status"`
}

func (*UserPerson) Kind() string { return "UserPerson" }

func (user *UserPerson) UserID() int64 { return user.ID }

func (user *UserPerson) Name() string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.LegalName
}

// UserCompany is a business account holder.
type UserCompany struct {
	ID          int64  `json:"id"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	PublicUUID  string `json:"public_uuid"`
	CompanyName string `json:"name"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	SubStatus   string `json:"sub_status"`
}

func (*UserCompany) Kind() string { return "UserCompany" }

func (user *UserCompany) UserID() int64 { return user.ID }

func (user *UserCompany) Name() string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.CompanyName
}

// UserAPIKey is the user an API key acts as. The nested user objects
// are kept raw: each is itself a single-key envelope element.
type UserAPIKey struct {
	ID              int64           `json:"id"`
	Created         string          `json:"created"`
	Updated         string          `json:"updated"`
	RequestedByUser json.RawMessage `json:"requested_by_user"`
	GrantedByUser   json.RawMessage `json:"granted_by_user"`
}

func (*UserAPIKey) Kind() string { return "UserApiKey" }

func (user *UserAPIKey) UserID() int64 { return user.ID }

func (user *UserAPIKey) Name() string { return "API key" }

// MonetaryAccountDetails holds the fields shared by every monetary
// account kind.
type MonetaryAccountDetails struct {
	ID          int64     `json:"id"`
	Created     string    `json:"created"`
	Updated     string    `json:"updated"`
	Currency    string    `json:"currency"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Balance     Amount    `json:"balance"`
	Alias       []Pointer `json:"alias"`
}

// IBAN returns the first IBAN alias, or "".
func (details *MonetaryAccountDetails) IBAN() string {
	for _, alias := range details.Alias {
		if alias.Type == "IBAN" {
			return alias.Value
		}
	}
	return ""
}

// MonetaryAccountBank is a regular current account.
type MonetaryAccountBank struct {
	MonetaryAccountDetails
}

func (*MonetaryAccountBank) Kind() string { return "MonetaryAccountBank" }

func (account *MonetaryAccountBank) AccountID() int64 { return account.ID }

func (account *MonetaryAccountBank) Details() *MonetaryAccountDetails { return &account.MonetaryAccountDetails }

// MonetaryAccountSavings is a savings account.
type MonetaryAccountSavings struct {
	MonetaryAccountDetails
	SavingsGoal *Amount `json:"savings_goal,omitempty"`
}

func (*MonetaryAccountSavings) Kind() string { return "MonetaryAccountSavings" }

func (account *MonetaryAccountSavings) AccountID() int64 { return account.ID }

func (account *MonetaryAccountSavings) Details() *MonetaryAccountDetails { return &account.MonetaryAccountDetails }

// MonetaryAccountJoint is an account shared between users.
type MonetaryAccountJoint struct {
	MonetaryAccountDetails
}

func (*MonetaryAccountJoint) Kind() string { return "MonetaryAccountJoint" }

func (account *MonetaryAccountJoint) AccountID() int64 { return account.ID }

func (account *MonetaryAccountJoint) Details() *MonetaryAccountDetails { return &account.MonetaryAccountDetails }

// CredentialPasswordIP is a credential whose permitted IPs can be
// managed with [Client.PermittedIP].
type CredentialPasswordIP struct {
	ID         int64  `json:"id"`
	Created    string `json:"created"`
	Updated    string `json:"updated"`
	Status     string `json:"status"`
	ExpiryTime string `json:"expiry_time"`
	TokenValue string `json:"token_value"`
}

func (*CredentialPasswordIP) Kind() string { return "CredentialPasswordIp" }

// PermittedIP is one IP address allowed to use a credential.
type PermittedIP struct {
	ID     int64  `json:"id"`
	IP     string `json:"ip"`
	Status string `json:"status"`
}

func (*PermittedIP) Kind() string { return "PermittedIp" }

// Unknown preserves an entity kind this package has no type for.
type Unknown struct {
	Name string
	Raw  json.RawMessage
}

func (unknown *Unknown) Kind() string { return unknown.Name }

// entityKinds maps a wire key to a constructor for its typed entity.
var entityKinds = map[string]func() Entity{
	"Id":                     func() Entity { return new(ID) },
	"Token":                  func() Entity { return new(Token) },
	"ServerPublicKey":        func() Entity { return new(ServerPublicKey) },
	"Installation":           func() Entity { return new(Installation) },
	"DeviceServer":           func() Entity { return new(DeviceServer) },
	"DevicePhone":            func() Entity { return new(DevicePhone) },
	"UserPerson":             func() Entity { return new(UserPerson) },
	"UserCompany":            func() Entity { return new(UserCompany) },
	"UserApiKey":             func() Entity { return new(UserAPIKey) },
	"MonetaryAccountBank":    func() Entity { return new(MonetaryAccountBank) },
	"MonetaryAccountSavings": func() Entity { return new(MonetaryAccountSavings) },
	"MonetaryAccountJoint":   func() Entity { return new(MonetaryAccountJoint) },
	"CredentialPasswordIp":   func() Entity { return new(CredentialPasswordIP) },
	"PermittedIp":            func() Entity { return new(PermittedIP) },
}
