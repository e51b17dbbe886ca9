package iso20022

import (
	"strings"
	"testing"

	"ipsgateway/internal/common/money"
)

func TestJSONToXML(t *testing.T) {
	doc := BuildPain001("pay-1", "Maria & Co", "acc-1", "Johannes", "acc-2",
		money.MustParse("75.00"), "NAD", "", "")
	xml, err := JSONToXML(doc, "Document")
	if err != nil {
		t.Fatalf("JSONToXML: %v", err)
	}

	if !strings.HasPrefix(xml, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("missing xml declaration")
	}
	for _, want := range []string{
		"<MsgId>pay-1</MsgId>",
		`Amount="75.00"`,
		`Ccy="NAD"`,
		"Maria &amp; Co",
		`xmlns="` + NamespacePain001 + `"`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("xml missing %q:\n%s", want, xml)
		}
	}
}

func TestXMLToJSON(t *testing.T) {
	out := XMLToJSON(`<ns:MsgId>abc</ns:MsgId><Sts code="ok">done</Sts>`)
	if out["MsgId"] != "abc" {
		t.Errorf("MsgId = %v", out["MsgId"])
	}
	sts, ok := out["Sts"].(map[string]interface{})
	if !ok || sts["@code"] != "ok" || sts["_"] != "done" {
		t.Errorf("Sts = %v", out["Sts"])
	}
}
