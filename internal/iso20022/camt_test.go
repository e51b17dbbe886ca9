package iso20022

import (
	"encoding/json"
	"testing"

	"ipsgateway/internal/common/money"
)

func TestBuildCamt053Request(t *testing.T) {
	doc := BuildCamt053Request("acc-1", "2026-01-01T00:00:00Z", "")
	stmt := doc.Document.BkToCstmrStmt.Stmt
	if stmt.Acct.Id.Othr.Id != "acc-1" {
		t.Errorf("Acct = %+v", stmt.Acct)
	}
	if stmt.FrToDt == nil || stmt.FrToDt.FrDtTm != "2026-01-01T00:00:00Z" {
		t.Errorf("FrToDt = %+v", stmt.FrToDt)
	}
	if stmt.FrToDt.ToDtTm == "" {
		t.Error("ToDtTm should default to now")
	}
	if stmt.Bal == nil || stmt.Ntry == nil {
		t.Error("Bal and Ntry must be empty slices, not nil")
	}
}

func TestParseCamt053(t *testing.T) {
	t.Run("full statement", func(t *testing.T) {
		payload := []byte(`{"Document":{"BkToCstmrStmt":{"Stmt":{
			"Id":"acc-1",
			"Acct":{"Id":{"Othr":{"Id":"acc-1"}}},
			"Bal":[{"Tp":{"CdOrPrtry":{"Cd":"CLBD"}},"Amt":1250.50,"Ccy":"NAD","Dt":{"Dt":"2026-02-01"}}],
			"Ntry":[{"Amt":"100.00","Ccy":"NAD","BookgDt":{"Dt":"2026-01-15"},"CdtDbtInd":"CRDT","NtryRef":"ref-1"}]
		}}}}`)
		result, err := ParseCamt053(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.AccountID != "acc-1" {
			t.Errorf("AccountID = %q", result.AccountID)
		}
		if len(result.Balances) != 1 || result.Balances[0].Type != "CLBD" || result.Balances[0].Amount != "1250.50" {
			t.Errorf("Balances = %+v", result.Balances)
		}
		if len(result.Entries) != 1 || result.Entries[0].CreditDebit != "CRDT" || result.Entries[0].Ref != "ref-1" {
			t.Errorf("Entries = %+v", result.Entries)
		}
	})

	t.Run("missing arrays parse to empty slices", func(t *testing.T) {
		result, err := ParseCamt053([]byte(`{"Stmt":{"Id":"acc-2"}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Balances == nil || result.Entries == nil {
			t.Fatal("slices must not be nil")
		}
		if len(result.Balances) != 0 || len(result.Entries) != 0 {
			t.Errorf("got %+v", result)
		}
		if result.AccountID != "acc-2" {
			t.Errorf("AccountID = %q, want fallback to Stmt.Id", result.AccountID)
		}
	})

	t.Run("malformed input yields empty valid result", func(t *testing.T) {
		result, err := ParseCamt053([]byte(`<xml/>`))
		if err == nil {
			t.Fatal("expected error")
		}
		if result.Balances == nil || result.Entries == nil || len(result.Balances) != 0 {
			t.Errorf("got %+v", result)
		}
	})

	t.Run("defaults applied to bare lines", func(t *testing.T) {
		result, err := ParseCamt053([]byte(`{"Stmt":{"Bal":[{}],"Ntry":[{}]}}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Balances[0].Type != "OPBD" || result.Balances[0].Currency != "NAD" {
			t.Errorf("balance defaults = %+v", result.Balances[0])
		}
		if result.Entries[0].CreditDebit != "DBIT" {
			t.Errorf("entry defaults = %+v", result.Entries[0])
		}
	})
}

func TestPacs008RoundTrip(t *testing.T) {
	doc := BuildPacs008("msg-1", "SWNANANX", "acc-1", "FIRNNANX", "acc-2",
		money.MustParse("500.00"), "NAD", "e2e-1", "settle")
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fields, err := ParsePacs008(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fields.MessageID != "msg-1" || fields.EndToEndID != "e2e-1" {
		t.Errorf("ids = %+v", fields)
	}
	if fields.Amount != "500.00" || fields.Currency != "NAD" {
		t.Errorf("amount = %+v", fields)
	}
	if fields.DebtorAccountID != "acc-1" || fields.CreditorAccountID != "acc-2" {
		t.Errorf("accounts = %+v", fields)
	}
}

func TestParsePacs008Malformed(t *testing.T) {
	fields, err := ParsePacs008([]byte(`garbage`))
	if err == nil {
		t.Fatal("expected error")
	}
	if fields != (Pacs008Fields{}) {
		t.Errorf("got %+v, want zero value", fields)
	}
}
