package iso20022

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// BuildCamt052Request builds an account report request for a balance
// inquiry.
func BuildCamt052Request(accountID, fromDate string) Camt052Document {
	now := time.Now().UTC().Format(time.RFC3339)
	return Camt052Document{
		Document: Camt052Root{
			XMLNS: NamespaceCamt052,
			BkToCstmrAcctRpt: Camt052{
				GrpHdr: GroupHeader{
					MsgId:   fmt.Sprintf("camt052-%s-%s", accountID, ulid.Make().String()),
					CreDtTm: now,
				},
				Rpt: Report{
					Id:      accountID,
					Acct:    Account{Id: AccountIdentification{Othr: OtherIdentification{Id: accountID}}},
					Bal:     []Balance{},
					CreDtTm: now,
				},
			},
		},
		FromDate: fromDate,
	}
}

// BuildCamt053Request builds a statement request for a date range. When
// toDate is empty the current time is used, which suits "from date to now"
// queries.
func BuildCamt053Request(accountID, fromDate, toDate string) Camt053Document {
	now := time.Now().UTC().Format(time.RFC3339)
	if toDate == "" {
		toDate = now
	}
	return Camt053Document{
		Document: Camt053Root{
			XMLNS: NamespaceCamt053,
			BkToCstmrStmt: Camt053{
				GrpHdr: GroupHeader{
					MsgId:   fmt.Sprintf("camt053-%s-%s", accountID, ulid.Make().String()),
					CreDtTm: now,
				},
				Stmt: Statement{
					Id:   accountID,
					Acct: Account{Id: AccountIdentification{Othr: OtherIdentification{Id: accountID}}},
					FrToDt: &DateRange{
						FrDtTm: fromDate,
						ToDtTm: toDate,
					},
					Bal:     []Balance{},
					Ntry:    []Entry{},
					CreDtTm: now,
				},
			},
		},
	}
}

// ParseCamt053 extracts the account, balances and entries from a statement
// payload. Missing arrays parse to empty slices, never nil; a payload that
// cannot be decoded yields an empty-but-valid result and a non-nil error
// for the caller to log.
func ParseCamt053(payload []byte) (Camt053Result, error) {
	empty := Camt053Result{Balances: []StatementBalance{}, Entries: []StatementEntry{}}

	var doc camt053Loose
	if err := json.Unmarshal(payload, &doc); err != nil {
		return empty, fmt.Errorf("decoding camt.053: %w", err)
	}

	stmt := doc.Stmt
	if doc.Document != nil {
		stmt = &doc.Document.BkToCstmrStmt.Stmt
	}
	if stmt == nil {
		return empty, nil
	}

	result := Camt053Result{
		AccountID: stmt.Acct.Id.Othr.Id,
		Balances:  make([]StatementBalance, 0, len(stmt.Bal)),
		Entries:   make([]StatementEntry, 0, len(stmt.Ntry)),
	}
	if result.AccountID == "" {
		result.AccountID = stmt.Id
	}

	for _, b := range stmt.Bal {
		balType := "OPBD"
		if b.Tp != nil && b.Tp.CdOrPrtry.Cd != "" {
			balType = b.Tp.CdOrPrtry.Cd
		}
		ccy := b.Ccy
		if ccy == "" {
			ccy = "NAD"
		}
		date := ""
		if b.Dt != nil {
			date = b.Dt.Dt
		}
		result.Balances = append(result.Balances, StatementBalance{
			Type:     balType,
			Amount:   numberToString(b.Amt),
			Currency: ccy,
			Date:     date,
		})
	}

	for _, e := range stmt.Ntry {
		ccy := e.Ccy
		if ccy == "" {
			ccy = "NAD"
		}
		ind := e.CdtDbtInd
		if ind == "" {
			ind = "DBIT"
		}
		date := ""
		if e.BookgDt != nil {
			date = e.BookgDt.Dt
		}
		result.Entries = append(result.Entries, StatementEntry{
			Amount:      numberToString(e.Amt),
			Currency:    ccy,
			Date:        date,
			CreditDebit: ind,
			Ref:         e.NtryRef,
		})
	}

	return result, nil
}

// camt053Loose tolerates both the full Document wrapper and a bare Stmt, and
// amounts arriving as either JSON numbers or strings.
type camt053Loose struct {
	Document *struct {
		BkToCstmrStmt struct {
			Stmt looseStatement `json:"Stmt"`
		} `json:"BkToCstmrStmt"`
	} `json:"Document,omitempty"`
	Stmt *looseStatement `json:"Stmt,omitempty"`
}

type looseStatement struct {
	Id   string  `json:"Id"`
	Acct Account `json:"Acct"`
	Bal  []struct {
		Tp  *BalanceType `json:"Tp,omitempty"`
		Amt json.Number  `json:"Amt,omitempty"`
		Ccy string       `json:"Ccy,omitempty"`
		Dt  *BalanceDate `json:"Dt,omitempty"`
	} `json:"Bal"`
	Ntry []struct {
		Amt       json.Number  `json:"Amt,omitempty"`
		Ccy       string       `json:"Ccy,omitempty"`
		BookgDt   *BalanceDate `json:"BookgDt,omitempty"`
		CdtDbtInd string       `json:"CdtDbtInd,omitempty"`
		NtryRef   string       `json:"NtryRef,omitempty"`
	} `json:"Ntry"`
}

func numberToString(n json.Number) string {
	if n == "" {
		return "0"
	}
	return n.String()
}
