package iso20022

import (
	"encoding/json"
	"fmt"
	"time"

	"ipsgateway/internal/common/money"
)

// BuildPacs008 builds an FI-to-FI credit transfer for interbank settlement.
func BuildPacs008(messageID, debtorBIC, debtorAccountID, creditorBIC, creditorAccountID string, amount money.Amount, currency, endToEndID, reference string) Pacs008Document {
	var rmt *Remittance
	if reference != "" {
		rmt = &Remittance{Ustrd: reference}
	}

	return Pacs008Document{
		Document: Pacs008Root{
			XMLNS: NamespacePacs008,
			FICdtTrf: Pacs008{
				GrpHdr: Pacs008GroupHeader{
					MsgId:    messageID,
					CreDtTm:  time.Now().UTC().Format(time.RFC3339),
					NbOfTxs:  "1",
					SttlmInf: &SettlementInstruction{SttlmMtd: "CLRG"},
				},
				CdtTrfTxInf: InterbankTx{
					PmtId:          PaymentIdentification{EndToEndId: endToEndID},
					IntrBkSttlmAmt: ActiveAmount{Amount: amount.String(), Ccy: currency},
					InstgAgt:       Agent{FinInstnId: FinancialInstitution{BIC: debtorBIC}},
					InstdAgt:       Agent{FinInstnId: FinancialInstitution{BIC: creditorBIC}},
					Dbtr:           AgentAccount{Acct: Account{Id: AccountIdentification{Othr: OtherIdentification{Id: debtorAccountID}}}},
					Cdtr:           AgentAccount{Acct: Account{Id: AccountIdentification{Othr: OtherIdentification{Id: creditorAccountID}}}},
					RmtInf:         rmt,
				},
			},
		},
	}
}

// ParsePacs008 extracts the key fields from an inbound interbank transfer.
// A payload that cannot be decoded yields a zero result and a non-nil error
// for the caller to log.
func ParsePacs008(payload []byte) (Pacs008Fields, error) {
	var doc pacs008Loose
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Pacs008Fields{}, fmt.Errorf("decoding pacs.008: %w", err)
	}

	grp := doc.GrpHdr
	tx := doc.CdtTrfTxInf
	if doc.Document != nil {
		grp = &doc.Document.FICdtTrf.GrpHdr
		tx = &doc.Document.FICdtTrf.CdtTrfTxInf
	}

	var fields Pacs008Fields
	if grp != nil {
		fields.MessageID = grp.MsgId
	}
	if tx != nil {
		fields.EndToEndID = tx.PmtId.EndToEndId
		fields.Amount = tx.IntrBkSttlmAmt.Amount
		fields.Currency = tx.IntrBkSttlmAmt.Ccy
		fields.DebtorAccountID = tx.Dbtr.Acct.Id.Othr.Id
		fields.CreditorAccountID = tx.Cdtr.Acct.Id.Othr.Id
	}
	return fields, nil
}

type pacs008Loose struct {
	Document *struct {
		FICdtTrf struct {
			GrpHdr      Pacs008GroupHeader `json:"GrpHdr"`
			CdtTrfTxInf InterbankTx        `json:"CdtTrfTxInf"`
		} `json:"FICdtTrf"`
	} `json:"Document,omitempty"`
	GrpHdr      *Pacs008GroupHeader `json:"GrpHdr,omitempty"`
	CdtTrfTxInf *InterbankTx        `json:"CdtTrfTxInf,omitempty"`
}
