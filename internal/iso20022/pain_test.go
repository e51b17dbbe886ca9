package iso20022

import (
	"encoding/json"
	"testing"

	"ipsgateway/internal/common/money"
)

func TestBuildPain001(t *testing.T) {
	doc := BuildPain001("pay-1", "Maria N", "acc-1", "Johannes K", "acc-2",
		money.MustParse("150.00"), "NAD", "AUG-GRANT", "")

	pain := doc.Document.CstmrCdtTrfInitn
	if pain.GrpHdr.MsgId != "pay-1" {
		t.Errorf("MsgId = %q", pain.GrpHdr.MsgId)
	}
	if pain.GrpHdr.CtrlSum != "150.00" {
		t.Errorf("CtrlSum = %q, want two fractional digits", pain.GrpHdr.CtrlSum)
	}
	if pain.PmtInf.CdtTrfTxInf.Amt.Amount != "150.00" || pain.PmtInf.CdtTrfTxInf.Amt.Ccy != "NAD" {
		t.Errorf("Amt = %+v", pain.PmtInf.CdtTrfTxInf.Amt)
	}
	if got := pain.PmtInf.CdtTrfTxInf.PmtId.EndToEndId; got != "pay-1" {
		t.Errorf("EndToEndId = %q, want default to payment id", got)
	}
	if pain.PmtInf.CdtTrfTxInf.RmtInf == nil || pain.PmtInf.CdtTrfTxInf.RmtInf.Ustrd != "AUG-GRANT" {
		t.Errorf("RmtInf = %+v", pain.PmtInf.CdtTrfTxInf.RmtInf)
	}

	t.Run("explicit end-to-end id wins", func(t *testing.T) {
		doc := BuildPain001("pay-2", "A", "a", "B", "b", money.MustParse("1.00"), "NAD", "", "e2e-7")
		if got := doc.Document.CstmrCdtTrfInitn.PmtInf.CdtTrfTxInf.PmtId.EndToEndId; got != "e2e-7" {
			t.Errorf("EndToEndId = %q", got)
		}
	})

	t.Run("no reference omits RmtInf", func(t *testing.T) {
		doc := BuildPain001("pay-3", "A", "a", "B", "b", money.MustParse("1.00"), "NAD", "", "")
		if doc.Document.CstmrCdtTrfInitn.PmtInf.CdtTrfTxInf.RmtInf != nil {
			t.Error("RmtInf should be nil without a reference")
		}
	})
}

func TestValidatePain001(t *testing.T) {
	t.Run("built documents always validate", func(t *testing.T) {
		doc := BuildPain001("pay-1", "Maria N", "acc-1", "Johannes K", "acc-2",
			money.MustParse("150.00"), "NAD", "", "")
		if missing := ValidatePain001(doc); len(missing) != 0 {
			t.Errorf("missing = %v, want none", missing)
		}
	})

	t.Run("empty document reports all required paths", func(t *testing.T) {
		missing := ValidatePain001(Pain001Document{})
		if len(missing) == 0 {
			t.Fatal("expected missing fields")
		}
		want := map[string]bool{
			"GrpHdr.MsgId":        false,
			"GrpHdr.CreDtTm":      false,
			"PmtInf.Dbtr":         false,
			"PmtInf.DbtrAcct":     false,
			"CdtTrfTxInf.Amt":     false,
			"CdtTrfTxInf.Cdtr":    false,
			"CdtTrfTxInf.CdtrAcct": false,
		}
		for _, m := range missing {
			if _, ok := want[m]; !ok {
				t.Errorf("unexpected missing path %q", m)
			}
			want[m] = true
		}
		for path, seen := range want {
			if !seen {
				t.Errorf("path %q not reported", path)
			}
		}
	})
}

func TestParsePain002(t *testing.T) {
	t.Run("empty object defaults to pending", func(t *testing.T) {
		status, err := ParsePain002([]byte(`{}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.Status != StatusPending {
			t.Errorf("Status = %q, want PDNG", status.Status)
		}
		if status.OriginalMessageID != "" {
			t.Errorf("OriginalMessageID = %q, want empty", status.OriginalMessageID)
		}
	})

	t.Run("full document wrapper", func(t *testing.T) {
		payload := []byte(`{"Document":{"CstmrPmtStsRpt":{"GrpHdr":{"MsgId":"m"},"OrgnlGrpInfAndSts":{"OrgnlMsgId":"req-1","TxSts":"ACCP"}}}}`)
		status, err := ParsePain002(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.Status != StatusAccepted || status.OriginalMessageID != "req-1" {
			t.Errorf("got %+v", status)
		}
	})

	t.Run("bare status block", func(t *testing.T) {
		payload := []byte(`{"OrgnlGrpInfAndSts":{"OrgnlMsgId":"req-2","TxSts":"RJCT","StsRsnInf":[{"Rsn":{"Cd":"AC04"}}]}}`)
		status, err := ParsePain002(payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status.Status != StatusRejected || status.StatusReason != "AC04" {
			t.Errorf("got %+v", status)
		}
	})

	t.Run("unrecognised status is pending", func(t *testing.T) {
		payload := []byte(`{"OrgnlGrpInfAndSts":{"OrgnlMsgId":"req-3","TxSts":"WEIRD"}}`)
		status, _ := ParsePain002(payload)
		if status.Status != StatusPending {
			t.Errorf("Status = %q, want PDNG", status.Status)
		}
	})

	t.Run("undecodable payload errors but still pending", func(t *testing.T) {
		status, err := ParsePain002([]byte(`not json`))
		if err == nil {
			t.Fatal("expected error")
		}
		if status.Status != StatusPending {
			t.Errorf("Status = %q, want PDNG", status.Status)
		}
	})
}

func TestBuildPain002RoundTrip(t *testing.T) {
	doc := BuildPain002("req-9", StatusRejected, "AM04")
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	status, err := ParsePain002(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if status.OriginalMessageID != "req-9" || status.Status != StatusRejected || status.StatusReason != "AM04" {
		t.Errorf("round trip = %+v", status)
	}
}
