package storage

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/logging"
)

// Seed parameters. The RNG seed is fixed so repeated seeding of a fresh
// database produces identical content.
const (
	seedValue        = 42
	customerCount    = 50
	maxTxnPerAccount = 20
)

var (
	firstNames = []string{
		"Aarav", "Priya", "Rohan", "Ananya", "Vikram", "Sneha", "Arjun",
		"Kavya", "Rahul", "Meera", "Aditya", "Ishita", "Karan", "Divya",
		"Nikhil", "Pooja", "Sanjay", "Riya", "Amit", "Neha",
	}
	lastNames = []string{
		"Sharma", "Patel", "Singh", "Kumar", "Gupta", "Reddy", "Mehta",
		"Iyer", "Joshi", "Nair", "Verma", "Rao", "Das", "Kapoor", "Malhotra",
	}
	cities = []string{
		"Mumbai", "Delhi", "Bangalore", "Chennai", "Hyderabad",
		"Pune", "Kolkata", "Ahmedabad", "Jaipur", "Lucknow",
	}
	accountTypes     = []string{"Savings", "Checking", "Fixed Deposit"}
	transactionTypes = []string{"deposit", "withdrawal", "transfer", "payment"}
	loanTypes        = []string{"Home", "Auto", "Personal", "Education"}
	loanStatuses     = []string{"active", "closed", "defaulted"}
	cardTypes        = []string{"Gold", "Platinum", "Silver", "Titanium"}
	txnDescriptions  = []string{
		"ATM withdrawal", "Salary credit", "Online purchase", "Utility bill",
		"Fund transfer", "Grocery store", "Restaurant", "Fuel station",
		"Insurance premium", "Mobile recharge",
	}
)

// Seeder populates the banking schema with deterministic sample data
type Seeder struct {
	store  *Store
	logger *logging.Logger
}

// NewSeeder creates a seeder over an initialized store
func NewSeeder(store *Store) *Seeder {
	return &Seeder{
		store:  store,
		logger: logging.GetLogger(),
	}
}

// Seed fills all five tables. It refuses to run against a database that
// already holds customers, so an existing dataset is never silently doubled.
func (s *Seeder) Seed(ctx context.Context) error {
	var existing int

	err := s.store.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM customers").Scan(&existing)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to check existing data")
	}

	if existing > 0 {
		return errors.New(errors.ErrTypeDatabase,
			fmt.Sprintf("database already contains %d customers", existing)).
			WithSuggestion("Delete the database file and run 'askdb seed' again to reseed")
	}

	rng := rand.New(rand.NewSource(seedValue))
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tx, err := s.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to begin transaction")
	}

	defer func() { _ = tx.Rollback() }()

	accountID := 0
	transactionID := 0
	loanID := 0
	cardID := 0

	for customerID := 1; customerID <= customerCount; customerID++ {
		first := firstNames[rng.Intn(len(firstNames))]
		last := lastNames[rng.Intn(len(lastNames))]
		name := first + " " + last
		email := fmt.Sprintf("%s.%s%d@example.com",
			strings.ToLower(first), strings.ToLower(last), customerID)
		phone := fmt.Sprintf("+91-98%08d", rng.Intn(100000000))
		city := cities[rng.Intn(len(cities))]
		joined := now.AddDate(0, 0, -rng.Intn(5*365))

		_, err = tx.ExecContext(ctx,
			`INSERT INTO customers (customer_id, name, email, phone, city, join_date)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			customerID, name, email, phone, city, joined)
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeDatabase, "failed to insert customer")
		}

		// One to three accounts per customer, each with its own activity.
		for a := 0; a < 1+rng.Intn(3); a++ {
			accountID++
			balance := 1000 + rng.Float64()*99000
			opened := joined.AddDate(0, rng.Intn(12), 0)

			_, err = tx.ExecContext(ctx,
				`INSERT INTO accounts (account_id, customer_id, account_type, balance, opened_date)
				 VALUES (?, ?, ?, ?, ?)`,
				accountID, customerID, accountTypes[rng.Intn(len(accountTypes))],
				round2(balance), opened)
			if err != nil {
				return errors.Wrap(err, errors.ErrTypeDatabase, "failed to insert account")
			}

			for t := 0; t < rng.Intn(maxTxnPerAccount); t++ {
				transactionID++
				amount := 10 + rng.Float64()*4990
				when := opened.Add(time.Duration(rng.Intn(365*24)) * time.Hour)

				_, err = tx.ExecContext(ctx,
					`INSERT INTO transactions
					 (transaction_id, account_id, transaction_type, amount, transaction_date, description)
					 VALUES (?, ?, ?, ?, ?, ?)`,
					transactionID, accountID,
					transactionTypes[rng.Intn(len(transactionTypes))],
					round2(amount), when,
					txnDescriptions[rng.Intn(len(txnDescriptions))])
				if err != nil {
					return errors.Wrap(err, errors.ErrTypeDatabase, "failed to insert transaction")
				}
			}
		}

		if rng.Float64() < 0.4 {
			loanID++
			amount := 50000 + rng.Float64()*950000
			rate := 6 + rng.Float64()*9

			_, err = tx.ExecContext(ctx,
				`INSERT INTO loans
				 (loan_id, customer_id, loan_type, loan_amount, interest_rate, start_date, status)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				loanID, customerID, loanTypes[rng.Intn(len(loanTypes))],
				round2(amount), round2(rate),
				joined.AddDate(0, rng.Intn(24), 0),
				loanStatuses[rng.Intn(len(loanStatuses))])
			if err != nil {
				return errors.Wrap(err, errors.ErrTypeDatabase, "failed to insert loan")
			}
		}

		if rng.Float64() < 0.6 {
			cardID++
			limit := 25000 + rng.Float64()*475000
			outstanding := rng.Float64() * limit * 0.8

			_, err = tx.ExecContext(ctx,
				`INSERT INTO credit_cards
				 (card_id, customer_id, card_type, credit_limit, outstanding_balance, issue_date)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				cardID, customerID, cardTypes[rng.Intn(len(cardTypes))],
				round2(limit), round2(outstanding),
				joined.AddDate(0, rng.Intn(18), 0))
			if err != nil {
				return errors.Wrap(err, errors.ErrTypeDatabase, "failed to insert credit card")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrTypeDatabase, "failed to commit seed data")
	}

	s.logger.WithFields(map[string]interface{}{
		"customers":    customerCount,
		"accounts":     accountID,
		"transactions": transactionID,
		"loans":        loanID,
		"credit_cards": cardID,
	}).Info("database seeded")

	return nil
}

func round2(v float64) float64 {
	return float64(int64(v*100)) / 100
}
