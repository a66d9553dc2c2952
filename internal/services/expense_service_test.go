package services

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"spendwise/internal/logger"
	"spendwise/internal/models"
	"spendwise/internal/testutil"
)

func init() {
	logger.Init("test")
}

func validInput(key string) CreateExpenseInput {
	return CreateExpenseInput{
		Amount:         5000,
		Category:       "Test",
		Description:    "Idempotency Test",
		Date:           "2023-10-27",
		IdempotencyKey: key,
	}
}

func TestCreateExpense(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_new_expense", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewExpenseService(db)

		expense, replayed, err := svc.CreateExpense(ctx, validInput("key-12345"))
		testutil.AssertNoError(t, err)

		if replayed {
			t.Error("first submission should not be a replay")
		}
		if expense.ID == "" {
			t.Fatal("expected generated ID")
		}
		if expense.Amount != 5000 || expense.Category != "Test" || expense.Date != "2023-10-27" {
			t.Errorf("unexpected expense fields: %+v", expense)
		}
		if expense.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
		if n := testutil.CountExpenses(t, db); n != 1 {
			t.Errorf("expected 1 row, got %d", n)
		}
	})

	t.Run("description_defaults_to_empty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewExpenseService(db)

		in := validInput("no-description")
		in.Description = ""
		expense, _, err := svc.CreateExpense(ctx, in)
		testutil.AssertNoError(t, err)

		stored, err := svc.GetExpenseByID(ctx, expense.ID)
		testutil.AssertNoError(t, err)
		if stored.Description != "" {
			t.Errorf("expected empty description, got %q", stored.Description)
		}
	})

	t.Run("sequential_replay_returns_same_row", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewExpenseService(db)

		first, replayed, err := svc.CreateExpense(ctx, validInput("key-12345"))
		testutil.AssertNoError(t, err)
		if replayed {
			t.Fatal("first submission should not be a replay")
		}

		for i := 0; i < 5; i++ {
			again, replayed, err := svc.CreateExpense(ctx, validInput("key-12345"))
			testutil.AssertNoError(t, err)
			if !replayed {
				t.Errorf("submission %d should be a replay", i+2)
			}
			testutil.AssertSameExpense(t, first, again)
		}

		if n := testutil.CountExpenses(t, db); n != 1 {
			t.Errorf("expected exactly 1 row, got %d", n)
		}
	})

	t.Run("replay_ignores_edited_payload", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewExpenseService(db)

		original, _, err := svc.CreateExpense(ctx, validInput("edited-key"))
		testutil.AssertNoError(t, err)

		edited := validInput("edited-key")
		edited.Amount = 9999
		edited.Category = "Food"
		edited.Description = "changed after a failed submit"
		edited.Date = "2024-01-01"

		replay, replayed, err := svc.CreateExpense(ctx, edited)
		testutil.AssertNoError(t, err)
		if !replayed {
			t.Fatal("expected replay")
		}
		testutil.AssertSameExpense(t, original, replay)
		if replay.Amount != 5000 {
			t.Errorf("replay should carry the stored amount 50.00, got %s", replay.Amount)
		}
	})

	t.Run("distinct_keys_create_distinct_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewExpenseService(db)

		a, _, err := svc.CreateExpense(ctx, validInput("key-a"))
		testutil.AssertNoError(t, err)
		b, replayed, err := svc.CreateExpense(ctx, validInput("key-b"))
		testutil.AssertNoError(t, err)

		if replayed {
			t.Error("a different key must not be a replay")
		}
		if a.ID == b.ID {
			t.Error("expected distinct IDs for distinct keys")
		}
		if n := testutil.CountExpenses(t, db); n != 2 {
			t.Errorf("expected 2 rows, got %d", n)
		}
	})

	t.Run("validation_errors_perform_no_write", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*CreateExpenseInput)
			code   string
		}{
			{"missing_amount", func(in *CreateExpenseInput) { in.Amount = 0 }, "INVALID_INPUT"},
			{"negative_amount", func(in *CreateExpenseInput) { in.Amount = -100 }, "INVALID_INPUT"},
			{"missing_category", func(in *CreateExpenseInput) { in.Category = "" }, "INVALID_INPUT"},
			{"blank_category", func(in *CreateExpenseInput) { in.Category = "   " }, "INVALID_INPUT"},
			{"missing_date", func(in *CreateExpenseInput) { in.Date = "" }, "INVALID_INPUT"},
			{"malformed_date", func(in *CreateExpenseInput) { in.Date = "27/10/2023" }, "INVALID_INPUT"},
			{"missing_key", func(in *CreateExpenseInput) { in.IdempotencyKey = "" }, "IDEMPOTENCY_KEY_REQUIRED"},
			{"blank_key", func(in *CreateExpenseInput) { in.IdempotencyKey = "  " }, "IDEMPOTENCY_KEY_REQUIRED"},
			{"long_key", func(in *CreateExpenseInput) { in.IdempotencyKey = string(make([]byte, 256)) + "x" }, "IDEMPOTENCY_KEY_TOO_LONG"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				db := testutil.SetupTestDB(t)
				svc := NewExpenseService(db)

				in := validInput("validation-key")
				tt.mutate(&in)
				_, _, err := svc.CreateExpense(ctx, in)
				testutil.AssertAppError(t, err, tt.code)

				if n := testutil.CountExpenses(t, db); n != 0 {
					t.Errorf("expected no rows after validation error, got %d", n)
				}
			})
		}
	})

	t.Run("insert_conflict_returns_winner", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewExpenseService(db)

		// Commit a competing row between the lookup and our insert, the way
		// a concurrent request with the same key would.
		var winnerID string
		fired := false
		err := db.Callback().Create().Before("gorm:begin_transaction").Register("test:race", func(tx *gorm.DB) {
			if fired {
				return
			}
			fired = true
			winner := testutil.CreateTestExpense(t, db,
				testutil.WithIdempotencyKey("race-key"),
				testutil.WithAmount(1234),
			)
			winnerID = winner.ID
		})
		testutil.AssertNoError(t, err)

		got, replayed, err := svc.CreateExpense(ctx, validInput("race-key"))
		testutil.AssertNoError(t, err)

		if !replayed {
			t.Error("losing the insert race should be reported as a replay")
		}
		if got.ID != winnerID {
			t.Errorf("expected winner %s, got %s", winnerID, got.ID)
		}
		if got.Amount != 1234 {
			t.Errorf("expected the winner's amount, got %s", got.Amount)
		}
		if n := testutil.CountExpenses(t, db); n != 1 {
			t.Errorf("expected 1 row, got %d", n)
		}
	})

	t.Run("conflict_without_row_is_internal_error", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewExpenseService(db)

		err := db.Callback().Create().Before("gorm:create").Register("test:phantom_conflict", func(tx *gorm.DB) {
			_ = tx.AddError(gorm.ErrDuplicatedKey)
		})
		testutil.AssertNoError(t, err)

		_, _, err = svc.CreateExpense(ctx, validInput("phantom-key"))
		testutil.AssertAppError(t, err, "INTERNAL_ERROR")
	})
}

func TestCreateExpense_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewExpenseService(db)

	const workers = 20
	results := make([]*models.Expense, workers)

	var g errgroup.Group
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			<-start
			expense, _, err := svc.CreateExpense(context.Background(), validInput("concurrent-key"))
			results[i] = expense
			return err
		})
	}
	close(start)
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent create failed: %v", err)
	}

	if n := testutil.CountExpenses(t, db); n != 1 {
		t.Fatalf("expected exactly 1 row, got %d", n)
	}
	for i, r := range results {
		if r == nil {
			t.Fatalf("worker %d returned no expense", i)
		}
		if r.ID != results[0].ID {
			t.Errorf("worker %d resolved to %s, want %s", i, r.ID, results[0].ID)
		}
	}
}

func TestListExpenses(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	seed := func(t *testing.T, db *gorm.DB) {
		t.Helper()
		testutil.CreateTestExpense(t, db, testutil.WithCategory("Food"), testutil.WithDate("2024-03-10"), testutil.WithCreatedAt(base))
		testutil.CreateTestExpense(t, db, testutil.WithCategory("Transport"), testutil.WithDate("2024-04-01"), testutil.WithCreatedAt(base.Add(time.Minute)))
		testutil.CreateTestExpense(t, db, testutil.WithCategory("Food"), testutil.WithDate("2024-01-05"), testutil.WithCreatedAt(base.Add(2*time.Minute)))
		testutil.CreateTestExpense(t, db, testutil.WithCategory("food"), testutil.WithDate("2024-02-20"), testutil.WithCreatedAt(base.Add(3*time.Minute)))
	}

	t.Run("default_orders_by_created_at_desc", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		seed(t, db)
		svc := NewExpenseService(db)

		list, err := svc.ListExpenses(ctx, ExpenseFilter{})
		testutil.AssertNoError(t, err)

		if len(list) != 4 {
			t.Fatalf("expected 4 expenses, got %d", len(list))
		}
		for i := 1; i < len(list); i++ {
			if list[i].CreatedAt.After(list[i-1].CreatedAt) {
				t.Errorf("created_at not non-increasing at %d: %v after %v", i, list[i].CreatedAt, list[i-1].CreatedAt)
			}
		}
	})

	t.Run("date_desc", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		seed(t, db)
		svc := NewExpenseService(db)

		list, err := svc.ListExpenses(ctx, ExpenseFilter{Sort: SortDateDesc})
		testutil.AssertNoError(t, err)

		want := []string{"2024-04-01", "2024-03-10", "2024-02-20", "2024-01-05"}
		if len(list) != len(want) {
			t.Fatalf("expected %d expenses, got %d", len(want), len(list))
		}
		for i, d := range want {
			if list[i].Date != d {
				t.Errorf("position %d: expected date %s, got %s", i, d, list[i].Date)
			}
		}
	})

	t.Run("category_filter_is_exact", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		seed(t, db)
		svc := NewExpenseService(db)

		list, err := svc.ListExpenses(ctx, ExpenseFilter{Category: "Food"})
		testutil.AssertNoError(t, err)

		if len(list) != 2 {
			t.Fatalf("expected 2 Food expenses, got %d", len(list))
		}
		for _, e := range list {
			if e.Category != "Food" {
				t.Errorf("unexpected category %q", e.Category)
			}
		}
	})

	t.Run("empty_result_is_empty_slice", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewExpenseService(db)

		list, err := svc.ListExpenses(ctx, ExpenseFilter{Category: "Health"})
		testutil.AssertNoError(t, err)
		if list == nil || len(list) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", list)
		}
	})
}

func TestGetSummary(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := NewExpenseService(db)

	testutil.CreateTestExpense(t, db, testutil.WithCategory("Food"), testutil.WithAmount(1050))
	testutil.CreateTestExpense(t, db, testutil.WithCategory("Food"), testutil.WithAmount(250))
	testutil.CreateTestExpense(t, db, testutil.WithCategory("Health"), testutil.WithAmount(4000))

	t.Run("all", func(t *testing.T) {
		summary, err := svc.GetSummary(ctx, ExpenseFilter{})
		testutil.AssertNoError(t, err)
		if summary.Count != 3 || summary.Total != 5300 {
			t.Errorf("expected 3 expenses totalling 53.00, got %d totalling %s", summary.Count, summary.Total)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		summary, err := svc.GetSummary(ctx, ExpenseFilter{Category: "Food"})
		testutil.AssertNoError(t, err)
		if summary.Count != 2 || summary.Total != 1300 {
			t.Errorf("expected 2 expenses totalling 13.00, got %d totalling %s", summary.Count, summary.Total)
		}
	})

	t.Run("no_rows", func(t *testing.T) {
		summary, err := svc.GetSummary(ctx, ExpenseFilter{Category: "Other"})
		testutil.AssertNoError(t, err)
		if summary.Count != 0 || summary.Total != 0 {
			t.Errorf("expected zero summary, got %+v", summary)
		}
	})
}

func TestGetExpenseByID(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := NewExpenseService(db)

	created := testutil.CreateTestExpense(t, db)

	got, err := svc.GetExpenseByID(ctx, created.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertSameExpense(t, created, got)

	_, err = svc.GetExpenseByID(ctx, "missing")
	testutil.AssertAppError(t, err, "EXPENSE_NOT_FOUND")
}

func TestParseExpenseSort(t *testing.T) {
	cases := map[string]ExpenseSort{
		"date_desc":    SortDateDesc,
		"created_desc": SortCreatedDesc,
		"":             SortCreatedDesc,
		"amount_asc":   SortCreatedDesc,
	}
	for in, want := range cases {
		if got := ParseExpenseSort(in); got != want {
			t.Errorf("ParseExpenseSort(%q) = %q, want %q", in, got, want)
		}
	}
}
