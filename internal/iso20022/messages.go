// Package iso20022 builds and parses the ISO 20022 message shapes the
// gateway exchanges with IPS participants: pain.001 (payment initiation),
// pain.002 (payment status report), camt.052/053 (account report and
// statement) and pacs.008 (interbank credit transfer).
//
// Messages are represented as typed structs per message family rather than
// untyped maps, so the required-field contract is covered at compile time.
// The JSON field names follow the ISO 20022 element names; serialisation to
// XML goes through the minimal helpers in xml.go. This is a structurally
// faithful simplification; XSD-validated serialisation is an external
// concern, not part of this package.
package iso20022

// Namespace URNs for the supported message versions.
const (
	NamespacePain001 = "urn:iso:std:iso:20022:tech:xsd:pain.001.001.09"
	NamespacePain002 = "urn:iso:std:iso:20022:tech:xsd:pain.002.001.10"
	NamespaceCamt052 = "urn:iso:std:iso:20022:tech:xsd:camt.052.001.08"
	NamespaceCamt053 = "urn:iso:std:iso:20022:tech:xsd:camt.053.001.02"
	NamespacePacs008 = "urn:iso:std:iso:20022:tech:xsd:pacs.008.001.08"
)

// TransactionStatus is an ISO 20022 transaction status code.
type TransactionStatus string

const (
	StatusAccepted TransactionStatus = "ACCP"
	StatusRejected TransactionStatus = "RJCT"
	StatusPending  TransactionStatus = "PDNG"
)

// Party identifies a named party.
type Party struct {
	Nm string `json:"Nm,omitempty"`
}

// OtherIdentification carries a proprietary (non-IBAN) identifier.
type OtherIdentification struct {
	Id string `json:"Id"`
}

// AccountIdentification wraps the identification choice. Only the
// proprietary Othr form is used on this network.
type AccountIdentification struct {
	Othr OtherIdentification `json:"Othr"`
}

// Account references an account by identification.
type Account struct {
	Id AccountIdentification `json:"Id"`
}

// FinancialInstitution identifies an institution by BIC.
type FinancialInstitution struct {
	BIC string `json:"BIC,omitempty"`
}

// Agent wraps a financial institution identification.
type Agent struct {
	FinInstnId FinancialInstitution `json:"FinInstnId"`
}

// ActiveAmount is a currency-and-amount pair serialised as XML attributes.
type ActiveAmount struct {
	Amount string `json:"@Amount"`
	Ccy    string `json:"@Ccy"`
}

// PaymentIdentification carries the instruction and end-to-end identifiers.
type PaymentIdentification struct {
	InstrId    string `json:"InstrId,omitempty"`
	EndToEndId string `json:"EndToEndId"`
}

// Remittance carries unstructured remittance information.
type Remittance struct {
	Ustrd string `json:"Ustrd"`
}

// GroupHeader is the common message header.
type GroupHeader struct {
	MsgId    string `json:"MsgId"`
	CreDtTm  string `json:"CreDtTm"`
	NbOfTxs  string `json:"NbOfTxs,omitempty"`
	CtrlSum  string `json:"CtrlSum,omitempty"`
	InitgPty *Party `json:"InitgPty,omitempty"`
}

// --- pain.001 ---

// Pain001Document is a customer credit transfer initiation.
type Pain001Document struct {
	Document Pain001Root `json:"Document"`
}

// Pain001Root is the pain.001 document root.
type Pain001Root struct {
	XMLNS            string  `json:"@xmlns,omitempty"`
	CstmrCdtTrfInitn Pain001 `json:"CstmrCdtTrfInitn"`
}

// Pain001 holds the group header and the single payment instruction.
type Pain001 struct {
	GrpHdr GroupHeader        `json:"GrpHdr"`
	PmtInf PaymentInstruction `json:"PmtInf"`
}

// PaymentInstruction is the pain.001 payment information block.
type PaymentInstruction struct {
	PmtInfId    string           `json:"PmtInfId"`
	PmtMtd      string           `json:"PmtMtd"`
	ReqdExctnDt string           `json:"ReqdExctnDt"`
	Dbtr        Party            `json:"Dbtr"`
	DbtrAcct    Account          `json:"DbtrAcct"`
	DbtrAgt     Agent            `json:"DbtrAgt"`
	CdtTrfTxInf CreditTransferTx `json:"CdtTrfTxInf"`
}

// CreditTransferTx is the single credit transfer transaction.
type CreditTransferTx struct {
	PmtId    PaymentIdentification `json:"PmtId"`
	Amt      ActiveAmount          `json:"Amt"`
	CdtrAgt  Agent                 `json:"CdtrAgt"`
	Cdtr     Party                 `json:"Cdtr"`
	CdtrAcct Account               `json:"CdtrAcct"`
	RmtInf   *Remittance           `json:"RmtInf,omitempty"`
}

// --- pain.002 ---

// Pain002Document is a customer payment status report. Inbound payloads may
// carry the full Document wrapper or the bare OrgnlGrpInfAndSts block; both
// shapes decode into this struct.
type Pain002Document struct {
	Document          *Pain002Root         `json:"Document,omitempty"`
	OrgnlGrpInfAndSts *OriginalGroupStatus `json:"OrgnlGrpInfAndSts,omitempty"`
}

// Pain002Root is the pain.002 document root.
type Pain002Root struct {
	XMLNS          string  `json:"@xmlns,omitempty"`
	CstmrPmtStsRpt Pain002 `json:"CstmrPmtStsRpt"`
}

// Pain002 holds the group header and original group status.
type Pain002 struct {
	GrpHdr            GroupHeader         `json:"GrpHdr"`
	OrgnlGrpInfAndSts OriginalGroupStatus `json:"OrgnlGrpInfAndSts"`
}

// OriginalGroupStatus reports the status of an originally submitted message.
type OriginalGroupStatus struct {
	OrgnlMsgId string             `json:"OrgnlMsgId,omitempty"`
	TxSts      string             `json:"TxSts,omitempty"`
	StsRsnInf  []StatusReasonInfo `json:"StsRsnInf,omitempty"`
}

// StatusReasonInfo carries a coded status reason.
type StatusReasonInfo struct {
	Rsn StatusReason `json:"Rsn"`
}

// StatusReason is a status reason code.
type StatusReason struct {
	Cd string `json:"Cd,omitempty"`
}

// Pain002Status is the normalised result of parsing a pain.002.
type Pain002Status struct {
	OriginalMessageID string
	Status            TransactionStatus
	StatusReason      string
}

// --- camt.052 / camt.053 ---

// Camt052Document is a bank-to-customer account report request.
type Camt052Document struct {
	Document Camt052Root `json:"Document"`
	FromDate string      `json:"FromDate,omitempty"`
}

// Camt052Root is the camt.052 document root.
type Camt052Root struct {
	XMLNS            string  `json:"@xmlns,omitempty"`
	BkToCstmrAcctRpt Camt052 `json:"BkToCstmrAcctRpt"`
}

// Camt052 holds the group header and report.
type Camt052 struct {
	GrpHdr GroupHeader `json:"GrpHdr"`
	Rpt    Report      `json:"Rpt"`
}

// Report is the camt.052 account report block.
type Report struct {
	Id      string    `json:"Id"`
	Acct    Account   `json:"Acct"`
	Bal     []Balance `json:"Bal"`
	CreDtTm string    `json:"CreDtTm"`
}

// Camt053Document is a bank-to-customer statement.
type Camt053Document struct {
	Document Camt053Root `json:"Document"`
}

// Camt053Root is the camt.053 document root.
type Camt053Root struct {
	XMLNS         string  `json:"@xmlns,omitempty"`
	BkToCstmrStmt Camt053 `json:"BkToCstmrStmt"`
}

// Camt053 holds the group header and statement.
type Camt053 struct {
	GrpHdr GroupHeader `json:"GrpHdr"`
	Stmt   Statement   `json:"Stmt"`
}

// Statement is the camt.053 statement block.
type Statement struct {
	Id      string     `json:"Id"`
	Acct    Account    `json:"Acct"`
	FrToDt  *DateRange `json:"FrToDt,omitempty"`
	Bal     []Balance  `json:"Bal"`
	Ntry    []Entry    `json:"Ntry"`
	CreDtTm string     `json:"CreDtTm"`
}

// DateRange bounds a statement period.
type DateRange struct {
	FrDtTm string `json:"FrDtTm"`
	ToDtTm string `json:"ToDtTm"`
}

// Balance is a statement balance line.
type Balance struct {
	Tp  *BalanceType `json:"Tp,omitempty"`
	Amt string       `json:"Amt,omitempty"`
	Ccy string       `json:"Ccy,omitempty"`
	Dt  *BalanceDate `json:"Dt,omitempty"`
}

// BalanceType is the coded balance type.
type BalanceType struct {
	CdOrPrtry BalanceCode `json:"CdOrPrtry"`
}

// BalanceCode wraps the balance type code.
type BalanceCode struct {
	Cd string `json:"Cd,omitempty"`
}

// BalanceDate wraps a balance date.
type BalanceDate struct {
	Dt string `json:"Dt,omitempty"`
}

// Entry is a statement entry line.
type Entry struct {
	Amt       string       `json:"Amt,omitempty"`
	Ccy       string       `json:"Ccy,omitempty"`
	BookgDt   *BalanceDate `json:"BookgDt,omitempty"`
	CdtDbtInd string       `json:"CdtDbtInd,omitempty"`
	NtryRef   string       `json:"NtryRef,omitempty"`
}

// StatementBalance is a normalised balance extracted from a camt.053.
type StatementBalance struct {
	Type     string
	Amount   string
	Currency string
	Date     string
}

// StatementEntry is a normalised entry extracted from a camt.053.
type StatementEntry struct {
	Amount      string
	Currency    string
	Date        string
	CreditDebit string
	Ref         string
}

// Camt053Result is the normalised result of parsing a camt.053. Balances and
// Entries are never nil.
type Camt053Result struct {
	AccountID string
	Balances  []StatementBalance
	Entries   []StatementEntry
}

// --- pacs.008 ---

// Pacs008Document is an FI-to-FI customer credit transfer.
type Pacs008Document struct {
	Document Pacs008Root `json:"Document"`
}

// Pacs008Root is the pacs.008 document root.
type Pacs008Root struct {
	XMLNS    string  `json:"@xmlns,omitempty"`
	FICdtTrf Pacs008 `json:"FICdtTrf"`
}

// Pacs008 holds the group header and the credit transfer transaction.
type Pacs008 struct {
	GrpHdr      Pacs008GroupHeader `json:"GrpHdr"`
	CdtTrfTxInf InterbankTx        `json:"CdtTrfTxInf"`
}

// Pacs008GroupHeader extends the common header with settlement information.
type Pacs008GroupHeader struct {
	MsgId    string                 `json:"MsgId"`
	CreDtTm  string                 `json:"CreDtTm"`
	NbOfTxs  string                 `json:"NbOfTxs,omitempty"`
	SttlmInf *SettlementInstruction `json:"SttlmInf,omitempty"`
}

// SettlementInstruction names the settlement method.
type SettlementInstruction struct {
	SttlmMtd string `json:"SttlmMtd"`
}

// InterbankTx is the pacs.008 credit transfer transaction.
type InterbankTx struct {
	PmtId          PaymentIdentification `json:"PmtId"`
	IntrBkSttlmAmt ActiveAmount          `json:"IntrBkSttlmAmt"`
	InstgAgt       Agent                 `json:"InstgAgt"`
	InstdAgt       Agent                 `json:"InstdAgt"`
	Dbtr           AgentAccount          `json:"Dbtr"`
	Cdtr           AgentAccount          `json:"Cdtr"`
	RmtInf         *Remittance           `json:"RmtInf,omitempty"`
}

// AgentAccount wraps a party referenced only by account.
type AgentAccount struct {
	Acct Account `json:"Acct"`
}

// Pacs008Fields is the normalised result of parsing a pacs.008.
type Pacs008Fields struct {
	MessageID         string
	EndToEndID        string
	Amount            string
	Currency          string
	DebtorAccountID   string
	CreditorAccountID string
}
