package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"statement-reconciliation-backend/internal/apperrors"
	"statement-reconciliation-backend/internal/models"
	"statement-reconciliation-backend/internal/services/matching"
	"statement-reconciliation-backend/internal/testutil"
)

func TestBankAccountRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankAccountRepository(db)
	ctx := context.Background()

	acc := &models.BankAccount{ID: uuid.New(), Name: "Main", IBAN: "RO49AAAA1B31007593840000", Currency: "RON"}
	if err := repo.Create(ctx, acc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dup := &models.BankAccount{ID: uuid.New(), Name: "Copy", IBAN: acc.IBAN, Currency: "RON"}
	if err := repo.Create(ctx, dup); !apperrors.HasCode(err, apperrors.CodeDuplicateIBAN) {
		t.Errorf("expected DUPLICATE_IBAN, got %v", err)
	}

	got, err := repo.GetByID(ctx, acc.ID)
	if err != nil || got.IBAN != acc.IBAN {
		t.Errorf("GetByID = %+v, %v", got, err)
	}
	if _, err := repo.GetByID(ctx, uuid.New()); !apperrors.HasCode(err, apperrors.CodeAccountNotFound) {
		t.Errorf("expected ACCOUNT_NOT_FOUND, got %v", err)
	}

	exists, err := repo.ExistsByIBAN(ctx, acc.IBAN)
	if err != nil || !exists {
		t.Errorf("ExistsByIBAN = %v, %v", exists, err)
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("List = %d, %v", len(list), err)
	}
}

func TestStatementImportRepositoryUniqueHash(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewStatementImportRepository(db)
	ctx := context.Background()
	acc := testutil.SeedAccount(t, db, "RO49AAAA1B31007593840000")

	first := &models.StatementImport{ID: uuid.New(), BankAccountID: acc.ID, FileHash: "abc", Status: models.ImportStatusProcessed}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second := &models.StatementImport{ID: uuid.New(), BankAccountID: acc.ID, FileHash: "abc", Status: models.ImportStatusProcessed}
	if err := repo.Create(ctx, second); !apperrors.HasCode(err, apperrors.CodeDuplicateImport) {
		t.Errorf("expected DUPLICATE_IMPORT from the unique index, got %v", err)
	}

	if ok, _ := repo.ExistsByHash(ctx, "abc"); !ok {
		t.Error("hash should exist")
	}
	if _, err := repo.GetByID(ctx, uuid.New()); !apperrors.HasCode(err, apperrors.CodeImportNotFound) {
		t.Errorf("expected IMPORT_NOT_FOUND, got %v", err)
	}
}

func TestBankTransactionRepositoryPagesSameDay(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	imp := testutil.SeedImport(t, db, testutil.SeedAccount(t, db, "RO49AAAA1B31007593840000").ID)
	seen := map[uuid.UUID]bool{}
	for i := 0; i < 5; i++ {
		testutil.SeedTransaction(t, db, imp, testutil.Date(2024, 1, 8), "10.00", fmt.Sprintf("Plata %d", i))
	}
	testutil.SeedTransaction(t, db, imp, testutil.Date(2024, 1, 2), "10.00", "Plata veche")

	cursor := ""
	var last models.BankTransaction
	for pages := 0; ; pages++ {
		if pages > 10 {
			t.Fatal("pagination does not terminate")
		}
		items, next, err := repo.List(ctx, TransactionFilter{ImportID: &imp.ID, Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		for _, tx := range items {
			if seen[tx.ID] {
				t.Errorf("transaction %s returned twice", tx.ID)
			}
			seen[tx.ID] = true
			if tx.ValueDate.Before(last.ValueDate) || (tx.ValueDate.Equal(last.ValueDate) && tx.ID.String() < last.ID.String()) {
				t.Errorf("out of order: %v/%s after %v/%s", tx.ValueDate, tx.ID, last.ValueDate, last.ID)
			}
			last = tx
		}
		if next == "" {
			break
		}
		cursor = next
	}
	if len(seen) != 6 {
		t.Errorf("paged over %d transactions, want 6", len(seen))
	}
}

func TestParseCursor(t *testing.T) {
	id := uuid.New()
	c := PageCursor{ValueDate: testutil.Date(2024, 1, 8), ID: id}
	got, err := ParseCursor(c.String())
	if err != nil || got.ID != id || !got.ValueDate.Equal(c.ValueDate) {
		t.Errorf("ParseCursor(%q) = %+v, %v", c.String(), got, err)
	}
	for _, bad := range []string{"", id.String(), "2024-13-01_" + id.String(), "2024-01-08_nope"} {
		if _, err := ParseCursor(bad); err == nil {
			t.Errorf("ParseCursor(%q) should fail", bad)
		}
	}
}

func TestBankTransactionRepositoryListAndStats(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankTransactionRepository(db)
	ctx := context.Background()

	acc := testutil.SeedAccount(t, db, "RO49AAAA1B31007593840000")
	imp := testutil.SeedImport(t, db, acc.ID)
	in1 := testutil.SeedTransaction(t, db, imp, testutil.Date(2024, 1, 8), "4500.00", "Factura INV-2024001 plata")
	testutil.SeedTransaction(t, db, imp, testutil.Date(2024, 1, 9), "-12.50", "Comision")
	testutil.SeedTransaction(t, db, imp, testutil.Date(2024, 1, 20), "100.25", "Plata CMD-100")

	all, next, err := repo.List(ctx, TransactionFilter{ImportID: &imp.ID, Limit: 10})
	if err != nil || len(all) != 3 || next != "" {
		t.Fatalf("List = %d, %q, %v", len(all), next, err)
	}

	page, next, err := repo.List(ctx, TransactionFilter{ImportID: &imp.ID, Limit: 2})
	if err != nil || len(page) != 2 || next == "" {
		t.Fatalf("first page = %d, %q, %v", len(page), next, err)
	}
	rest, next2, err := repo.List(ctx, TransactionFilter{ImportID: &imp.ID, Limit: 2, Cursor: next})
	if err != nil || len(rest) != 1 || next2 != "" {
		t.Fatalf("second page = %d, %q, %v", len(rest), next2, err)
	}
	if page[0].ID != in1.ID || page[1].ValueDate.Day() != 9 || rest[0].ValueDate.Day() != 20 {
		t.Errorf("pages should follow value date order, got %v %v then %v", page[0].ValueDate, page[1].ValueDate, rest[0].ValueDate)
	}
	if _, _, err := repo.List(ctx, TransactionFilter{Limit: 2, Cursor: "2024-01-08"}); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected VALIDATION_FAILED for a malformed cursor, got %v", err)
	}

	from := testutil.Date(2024, 1, 9)
	dated, _, err := repo.List(ctx, TransactionFilter{DateFrom: &from, Limit: 10})
	if err != nil || len(dated) != 2 {
		t.Errorf("date filter = %d, %v", len(dated), err)
	}

	found, _, err := repo.List(ctx, TransactionFilter{Search: "inv-2024", Limit: 10})
	if err != nil || len(found) != 1 || found[0].ID != in1.ID {
		t.Errorf("search = %+v, %v", found, err)
	}

	incoming, err := repo.ListUnmatchedIncoming(ctx, &acc.ID, 10)
	if err != nil || len(incoming) != 2 {
		t.Fatalf("ListUnmatchedIncoming = %d, %v", len(incoming), err)
	}
	if incoming[0].ID != in1.ID {
		t.Error("oldest transaction should come first")
	}

	matchID := uuid.New()
	ok, err := repo.MarkMatched(ctx, in1.ID, matchID)
	if err != nil || !ok {
		t.Fatalf("MarkMatched = %v, %v", ok, err)
	}
	ok, err = repo.MarkMatched(ctx, in1.ID, uuid.New())
	if err != nil || ok {
		t.Errorf("second MarkMatched should not update, got %v, %v", ok, err)
	}
	ok, _ = repo.MarkMatched(ctx, uuid.New(), matchID)
	if ok {
		t.Error("MarkMatched on a missing row should not update")
	}

	matched, _, err := repo.List(ctx, TransactionFilter{Status: models.TransactionStatusMatched, Limit: 10})
	if err != nil || len(matched) != 1 || matched[0].ConfirmedMatchID == nil || *matched[0].ConfirmedMatchID != matchID {
		t.Errorf("matched list = %+v, %v", matched, err)
	}

	stats, err := repo.StatsByImport(ctx, imp.ID)
	if err != nil {
		t.Fatalf("StatsByImport: %v", err)
	}
	if stats.Total != 3 || stats.Matched.Count != 1 || stats.Unmatched.Count != 2 {
		t.Errorf("unexpected counts %+v", stats)
	}
	if !stats.TotalAmount.Equal(decimal.RequireFromString("4587.75")) {
		t.Errorf("total amount = %s", stats.TotalAmount)
	}
	if !stats.Matched.Sum.Equal(decimal.RequireFromString("4500")) || stats.Outgoing.Count != 1 || stats.Incoming.Count != 2 {
		t.Errorf("unexpected sums %+v", stats)
	}
}

func TestExistingFingerprints(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankTransactionRepository(db)
	acc := testutil.SeedAccount(t, db, "RO49AAAA1B31007593840000")
	other := testutil.SeedAccount(t, db, "RO09BCYP0000001234567890")
	tx := testutil.SeedTransaction(t, db, testutil.SeedImport(t, db, acc.ID), testutil.Date(2024, 1, 8), "1.00", "x")

	got, err := repo.ExistingFingerprints(context.Background(), acc.ID, []string{tx.Fingerprint, "missing"})
	if err != nil || len(got) != 1 || !got[tx.Fingerprint] {
		t.Errorf("ExistingFingerprints = %v, %v", got, err)
	}

	got, _ = repo.ExistingFingerprints(context.Background(), other.ID, []string{tx.Fingerprint})
	if len(got) != 0 {
		t.Error("fingerprints are scoped per account")
	}
}

func TestPaymentMatchRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPaymentMatchRepository(db)
	ctx := context.Background()
	txID, candidateID := uuid.New(), uuid.New()

	m := &models.PaymentMatch{
		ID:                uuid.New(),
		BankTransactionID: txID,
		MatchType:         models.MatchTypeInvoice,
		CandidateID:       candidateID,
		Amount:            decimal.RequireFromString("10"),
		Confidence:        55,
		Status:            models.MatchStatusSuggested,
	}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}

	found, err := repo.FindSuggested(ctx, txID, models.MatchTypeInvoice, candidateID)
	if err != nil || found == nil || found.ID != m.ID {
		t.Fatalf("FindSuggested = %+v, %v", found, err)
	}
	none, err := repo.FindSuggested(ctx, txID, models.MatchTypeOrder, candidateID)
	if err != nil || none != nil {
		t.Errorf("expected no suggestion, got %+v, %v", none, err)
	}

	ok, err := repo.TransitionStatus(ctx, m.ID, models.MatchStatusSuggested, models.MatchStatusRejected, "bob", time.Now())
	if err != nil || !ok {
		t.Fatalf("TransitionStatus = %v, %v", ok, err)
	}
	ok, _ = repo.TransitionStatus(ctx, m.ID, models.MatchStatusSuggested, models.MatchStatusRejected, "bob", time.Now())
	if ok {
		t.Error("a rejected match cannot be rejected again")
	}

	list, err := repo.ListByTransaction(ctx, txID)
	if err != nil || len(list) != 1 || list[0].Status != models.MatchStatusRejected || list[0].ChangedBy != "bob" {
		t.Errorf("ListByTransaction = %+v, %v", list, err)
	}

	if _, err := repo.GetByID(ctx, uuid.New()); !apperrors.HasCode(err, apperrors.CodeMatchNotFound) {
		t.Errorf("expected MATCH_NOT_FOUND, got %v", err)
	}
}

func TestCandidateSources(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	issued := testutil.Date(2024, 1, 5)

	open := testutil.SeedInvoice(t, db, "INV-2024001", "4500.00", issued, "sent")
	testutil.SeedInvoice(t, db, "INV-2024002", "4500.00", issued, "paid")
	testutil.SeedInvoice(t, db, "INV-2024003", "4500.02", issued, "sent")
	testutil.SeedInvoice(t, db, "INV-2023999", "4500.00", testutil.Date(2023, 6, 1), "sent")
	near := testutil.SeedInvoice(t, db, "INV-2024004", "4499.99", issued, "overdue")

	pf := testutil.SeedProforma(t, db, "PF-001", "4500.00", issued, "sent")
	testutil.SeedProforma(t, db, "PF-002", "4500.00", issued, "converted")

	order := testutil.SeedOrder(t, db, "CMD-100", "4500.01", issued, "pending")
	testutil.SeedOrder(t, db, "CMD-101", "4500.00", issued, "paid")

	q := matching.CandidateQuery{
		Amount:    decimal.RequireFromString("4500.00"),
		Tolerance: decimal.RequireFromString("0.01"),
		Currency:  "RON",
		DateFrom:  testutil.Date(2023, 10, 10),
		DateTo:    testutil.Date(2024, 1, 15),
	}

	tests := []struct {
		source matching.CandidateSource
		want   []uuid.UUID
	}{
		{NewInvoiceRepository(db), []uuid.UUID{open.ID, near.ID}},
		{NewProformaRepository(db), []uuid.UUID{pf.ID}},
		{NewOrderRepository(db), []uuid.UUID{order.ID}},
	}

	for _, tt := range tests {
		t.Run(string(tt.source.Name()), func(t *testing.T) {
			got, err := tt.source.FindCandidates(ctx, q)
			if err != nil {
				t.Fatalf("FindCandidates: %v", err)
			}
			ids := map[uuid.UUID]bool{}
			for _, c := range got {
				ids[c.ID] = true
				if c.SourceType != tt.source.Name() {
					t.Errorf("source type = %s", c.SourceType)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d candidates, want %d: %+v", len(got), len(tt.want), got)
			}
			for _, id := range tt.want {
				if !ids[id] {
					t.Errorf("missing candidate %s", id)
				}
			}
		})
	}

	c, err := NewInvoiceRepository(db).GetCandidate(ctx, open.ID)
	if err != nil || c.DocumentNumber != "INV-2024001" || !c.DocumentDate.Equal(issued) {
		t.Errorf("GetCandidate = %+v, %v", c, err)
	}
	if _, err := NewOrderRepository(db).GetCandidate(ctx, uuid.New()); !apperrors.HasCode(err, apperrors.CodeCandidateNotFound) {
		t.Errorf("expected CANDIDATE_NOT_FOUND, got %v", err)
	}

	hits, err := NewInvoiceRepository(db).SearchInvoices(ctx, "inv-2024", decimal.Zero, []string{"sent"})
	if err != nil || len(hits) != 2 {
		t.Errorf("SearchInvoices = %d, %v", len(hits), err)
	}
}
