// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bunq

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

const installationBody = `{"Response":[
	{"Id":{"id":11}},
	{"Token":{"id":12,"created":"2026-01-01 00:00:00.000000","token":"installation-token"}},
	{"ServerPublicKey":{"server_public_key":"-----BEGIN PUBLIC KEY-----\nMIIB\n-----END PUBLIC KEY-----\n"}}
]}`

func TestDecodeEnvelope_Installation(t *testing.T) {
	envelope, err := DecodeEnvelope([]byte(installationBody))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if len(envelope.Entities) != 3 {
		t.Fatalf("decoded %d entities, want 3", len(envelope.Entities))
	}

	id, err := At[*ID](envelope, 0)
	if err != nil || id.ID != 11 {
		t.Errorf("At[*ID](0) = %+v, %v", id, err)
	}
	token, err := At[*Token](envelope, 1)
	if err != nil || token.Token != "installation-token" {
		t.Errorf("At[*Token](1) = %+v, %v", token, err)
	}
	key, err := At[*ServerPublicKey](envelope, 2)
	if err != nil || !strings.HasPrefix(key.ServerPublicKey, "-----BEGIN PUBLIC KEY-----") {
		t.Errorf("At[*ServerPublicKey](2) = %+v, %v", key, err)
	}
}

func TestAt_Failures(t *testing.T) {
	envelope, err := DecodeEnvelope([]byte(installationBody))
	if err != nil {
		t.Fatal(err)
	}

	_, err = At[*Token](envelope, 0)
	var decodeError *DecodeError
	if !errors.As(err, &decodeError) {
		t.Fatalf("wrong kind: error = %v, want *DecodeError", err)
	}
	if decodeError.Index != 0 || decodeError.Kind != "Id" {
		t.Errorf("DecodeError = %+v, want index 0 kind Id", decodeError)
	}
	if !strings.Contains(err.Error(), "*bunq.Token") {
		t.Errorf("error should name the wanted type: %v", err)
	}

	for _, index := range []int{-1, 3} {
		if _, err := At[*Token](envelope, index); !errors.As(err, &decodeError) {
			t.Errorf("At(%d) error = %v, want *DecodeError", index, err)
		}
	}
}

func TestDecodeEnvelope_SessionUserKinds(t *testing.T) {
	tests := []struct {
		kind     string
		payload  string
		wantID   int64
		wantName string
	}{
		{"UserPerson", `{"id":1,"display_name":"Ada L","legal_name":"Ada Lovelace"}`, 1, "Ada L"},
		{"UserPerson", `{"id":2,"legal_name":"Alan Turing"}`, 2, "Alan Turing"},
		{"UserCompany", `{"id":3,"name":"Analytical Engines BV"}`, 3, "Analytical Engines BV"},
		{"UserApiKey", `{"id":4,"requested_by_user":{"UserPerson":{"id":1}}}`, 4, "API key"},
	}
	for _, test := range tests {
		t.Run(test.kind+"/"+test.wantName, func(t *testing.T) {
			body := fmt.Sprintf(`{"Response":[{"Id":{"id":9}},{"Token":{"token":"s"}},{%q:%s}]}`, test.kind, test.payload)
			envelope, err := DecodeEnvelope([]byte(body))
			if err != nil {
				t.Fatalf("DecodeEnvelope: %v", err)
			}
			user, err := Find[User](envelope)
			if err != nil {
				t.Fatalf("Find[User]: %v", err)
			}
			if user.Kind() != test.kind || user.UserID() != test.wantID || user.Name() != test.wantName {
				t.Errorf("user = %s/%d/%q, want %s/%d/%q",
					user.Kind(), user.UserID(), user.Name(), test.kind, test.wantID, test.wantName)
			}
		})
	}
}

func TestDecodeEnvelope_MonetaryAccounts(t *testing.T) {
	body := `{"Response":[
		{"MonetaryAccountBank":{"id":1,"currency":"EUR","description":"Main","status":"ACTIVE",
			"balance":{"value":"12.50","currency":"EUR"},
			"alias":[{"type":"EMAIL","value":"a@example.com"},{"type":"IBAN","value":"NL00BUNQ0123456789","name":"Ada"}]}},
		{"MonetaryAccountSavings":{"id":2,"currency":"EUR","savings_goal":{"value":"1000.00","currency":"EUR"}}},
		{"MonetaryAccountJoint":{"id":3,"currency":"EUR"}}
	],"Pagination":{"future_url":null,"newer_url":null,"older_url":"/v1/user/1/monetary-account?older_id=1"}}`

	envelope, err := DecodeEnvelope([]byte(body))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	accounts := All[MonetaryAccount](envelope)
	if len(accounts) != 3 {
		t.Fatalf("All[MonetaryAccount] = %d accounts, want 3", len(accounts))
	}
	for index, account := range accounts {
		if account.AccountID() != int64(index+1) {
			t.Errorf("account %d has id %d", index, account.AccountID())
		}
	}
	bank := accounts[0].Details()
	if bank.Balance.Value != "12.50" || bank.IBAN() != "NL00BUNQ0123456789" {
		t.Errorf("bank details = %+v", bank)
	}
	savings, err := At[*MonetaryAccountSavings](envelope, 1)
	if err != nil || savings.SavingsGoal == nil || savings.SavingsGoal.Value != "1000.00" {
		t.Errorf("savings = %+v, %v", savings, err)
	}
	if envelope.Pagination == nil || envelope.Pagination.OlderURL == "" || envelope.Pagination.NewerURL != "" {
		t.Errorf("pagination = %+v", envelope.Pagination)
	}
}

func TestDecodeEnvelope_Unknown(t *testing.T) {
	envelope, err := DecodeEnvelope([]byte(`{"Response":[{"NotificationFilter":{"category":"PAYMENT"}}]}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	unknown, err := At[*Unknown](envelope, 0)
	if err != nil {
		t.Fatalf("At[*Unknown]: %v", err)
	}
	if unknown.Kind() != "NotificationFilter" || string(unknown.Raw) != `{"category":"PAYMENT"}` {
		t.Errorf("unknown = %s %s", unknown.Kind(), unknown.Raw)
	}
}

func TestDecodeEnvelope_ErrorEnvelope(t *testing.T) {
	body := `{"Error":[{"error_description":"User credentials are incorrect.","error_description_translated":"User credentials are incorrect."}]}`
	_, err := DecodeEnvelope([]byte(body))
	var apiError *APIError
	if !errors.As(err, &apiError) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if len(apiError.Descriptions) != 1 || apiError.Descriptions[0] != "User credentials are incorrect." {
		t.Errorf("descriptions = %q", apiError.Descriptions)
	}
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not JSON", `<html>`},
		{"no Response", `{"Other":[]}`},
		{"two keys", `{"Response":[{"Id":{"id":1},"Token":{"token":"x"}}]}`},
		{"empty element", `{"Response":[{}]}`},
		{"wrong field type", `{"Response":[{"Id":{"id":"eleven"}}]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(test.body))
			var decodeError *DecodeError
			if !errors.As(err, &decodeError) {
				t.Errorf("error = %v, want *DecodeError", err)
			}
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("error envelope carries status", func(t *testing.T) {
		_, err := DecodeResponse(&Response{
			StatusCode: http.StatusBadRequest,
			Body:       []byte(`{"Error":[{"error_description":"Bad"}]}`),
		})
		var apiError *APIError
		if !errors.As(err, &apiError) || apiError.StatusCode != http.StatusBadRequest {
			t.Fatalf("error = %v, want *APIError with status 400", err)
		}
		if err.Error() != "bunq: HTTP 400: Bad" {
			t.Errorf("message = %q", err.Error())
		}
	})
	t.Run("non-2xx without envelope", func(t *testing.T) {
		_, err := DecodeResponse(&Response{StatusCode: http.StatusBadGateway, Body: []byte("upstream down")})
		if !IsAPIError(err) {
			t.Fatalf("error = %v, want *APIError", err)
		}
	})
	t.Run("404", func(t *testing.T) {
		_, err := DecodeResponse(&Response{StatusCode: http.StatusNotFound, Body: []byte(`{"Error":[{"error_description":"Not found"}]}`)})
		if !IsNotFound(err) {
			t.Errorf("IsNotFound(%v) = false", err)
		}
	})
	t.Run("success", func(t *testing.T) {
		envelope, err := DecodeResponse(&Response{StatusCode: http.StatusOK, Body: []byte(`{"Response":[{"Id":{"id":1}}]}`)})
		if err != nil || len(envelope.Entities) != 1 {
			t.Errorf("DecodeResponse = %+v, %v", envelope, err)
		}
	})
}

func TestFind_Missing(t *testing.T) {
	envelope, err := DecodeEnvelope([]byte(`{"Response":[{"Id":{"id":1}}]}`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = Find[User](envelope)
	if err == nil || !strings.Contains(err.Error(), "bunq.User") {
		t.Errorf("Find[User] error = %v, want a DecodeError naming bunq.User", err)
	}
	if matches := All[*Token](envelope); len(matches) != 0 {
		t.Errorf("All[*Token] = %v, want none", matches)
	}
}
