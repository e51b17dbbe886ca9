package iso20022

import (
	"encoding/json"
	"fmt"
	"time"

	"ipsgateway/internal/common/money"
)

// Default BIC used when a party's institution is not known. The Namibian
// network identifies counterparties by participant id, not BIC, so agents
// are informational here.
const defaultBIC = "SWNANANX"

// BuildPain001 builds a customer credit transfer initiation for a single
// payment. EndToEndId defaults to paymentID when not supplied; the amount is
// serialised with exactly two fractional digits.
func BuildPain001(paymentID, debtorName, debtorAccountID, creditorName, creditorAccountID string, amount money.Amount, currency, reference, endToEndID string) Pain001Document {
	now := time.Now().UTC()
	if endToEndID == "" {
		endToEndID = paymentID
	}

	var rmt *Remittance
	if reference != "" {
		rmt = &Remittance{Ustrd: reference}
	}

	return Pain001Document{
		Document: Pain001Root{
			XMLNS: NamespacePain001,
			CstmrCdtTrfInitn: Pain001{
				GrpHdr: GroupHeader{
					MsgId:    paymentID,
					CreDtTm:  now.Format(time.RFC3339),
					NbOfTxs:  "1",
					CtrlSum:  amount.String(),
					InitgPty: &Party{Nm: debtorName},
				},
				PmtInf: PaymentInstruction{
					PmtInfId:    paymentID,
					PmtMtd:      "TRF",
					ReqdExctnDt: now.Format("2006-01-02"),
					Dbtr:        Party{Nm: debtorName},
					DbtrAcct:    Account{Id: AccountIdentification{Othr: OtherIdentification{Id: debtorAccountID}}},
					DbtrAgt:     Agent{FinInstnId: FinancialInstitution{BIC: defaultBIC}},
					CdtTrfTxInf: CreditTransferTx{
						PmtId: PaymentIdentification{
							InstrId:    paymentID,
							EndToEndId: endToEndID,
						},
						Amt:      ActiveAmount{Amount: amount.String(), Ccy: currency},
						CdtrAgt:  Agent{FinInstnId: FinancialInstitution{BIC: defaultBIC}},
						Cdtr:     Party{Nm: creditorName},
						CdtrAcct: Account{Id: AccountIdentification{Othr: OtherIdentification{Id: creditorAccountID}}},
						RmtInf:   rmt,
					},
				},
			},
		},
	}
}

// ValidatePain001 checks the required fields for this network and returns
// the missing field paths; an empty slice means the document is acceptable
// to relay. The same check guards built messages before delivery and
// inbound documents before any further processing.
func ValidatePain001(doc Pain001Document) []string {
	var missing []string
	pain := doc.Document.CstmrCdtTrfInitn
	tx := pain.PmtInf.CdtTrfTxInf

	if pain.GrpHdr.MsgId == "" {
		missing = append(missing, "GrpHdr.MsgId")
	}
	if pain.GrpHdr.CreDtTm == "" {
		missing = append(missing, "GrpHdr.CreDtTm")
	}
	if pain.PmtInf.Dbtr.Nm == "" {
		missing = append(missing, "PmtInf.Dbtr")
	}
	if pain.PmtInf.DbtrAcct.Id.Othr.Id == "" {
		missing = append(missing, "PmtInf.DbtrAcct")
	}
	if tx.Amt.Amount == "" {
		missing = append(missing, "CdtTrfTxInf.Amt")
	}
	if tx.Cdtr.Nm == "" {
		missing = append(missing, "CdtTrfTxInf.Cdtr")
	}
	if tx.CdtrAcct.Id.Othr.Id == "" {
		missing = append(missing, "CdtTrfTxInf.CdtrAcct")
	}
	return missing
}

// BuildPain002 builds a payment status report for an original message.
func BuildPain002(originalMessageID string, status TransactionStatus, reasonCode string) Pain002Document {
	var reasons []StatusReasonInfo
	if reasonCode != "" {
		reasons = []StatusReasonInfo{{Rsn: StatusReason{Cd: reasonCode}}}
	}

	return Pain002Document{
		Document: &Pain002Root{
			XMLNS: NamespacePain002,
			CstmrPmtStsRpt: Pain002{
				GrpHdr: GroupHeader{
					MsgId:   fmt.Sprintf("pain002-%s", originalMessageID),
					CreDtTm: time.Now().UTC().Format(time.RFC3339),
				},
				OrgnlGrpInfAndSts: OriginalGroupStatus{
					OrgnlMsgId: originalMessageID,
					TxSts:      string(status),
					StsRsnInf:  reasons,
				},
			},
		},
	}
}

// ParsePain002 parses a payment status report payload. The status defaults
// to PDNG when the status block is absent or the code is unrecognised: an
// unknown status is pending until clarified, never a failure or a success.
// The error is non-nil only when the payload is not decodable at all.
func ParsePain002(payload []byte) (Pain002Status, error) {
	var doc Pain002Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Pain002Status{Status: StatusPending}, fmt.Errorf("decoding pain.002: %w", err)
	}
	return ParsePain002Document(doc), nil
}

// ParsePain002Document normalises an already-decoded status report.
func ParsePain002Document(doc Pain002Document) Pain002Status {
	sts := doc.OrgnlGrpInfAndSts
	if doc.Document != nil {
		sts = &doc.Document.CstmrPmtStsRpt.OrgnlGrpInfAndSts
	}
	if sts == nil {
		return Pain002Status{Status: StatusPending}
	}

	status := StatusPending
	switch TransactionStatus(sts.TxSts) {
	case StatusAccepted:
		status = StatusAccepted
	case StatusRejected:
		status = StatusRejected
	}

	reason := ""
	if len(sts.StsRsnInf) > 0 {
		reason = sts.StsRsnInf[0].Rsn.Cd
	}

	return Pain002Status{
		OriginalMessageID: sts.OrgnlMsgId,
		Status:            status,
		StatusReason:      reason,
	}
}
