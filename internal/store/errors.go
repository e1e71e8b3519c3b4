package store

import (
	"errors"
	"net"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"

	"transport-vendor-api/internal/models"
)

// SQLSTATE codes the store reacts to.
const (
	codeUniqueViolation    = "23505"
	codeInvalidPassword    = "28P01"
	codeInvalidAuth        = "28000"
	codeInvalidCatalog     = "3D000"
	codeCannotConnectNow   = "57P03"
	codeTooManyConnections = "53300"
	codeUndefinedFunction  = "42883"
	codeDatatypeMismatch   = "42804"
)

var hints = map[string]string{
	models.CauseConnectionRefused: "Database connection refused. Please ensure PostgreSQL is running and reachable at DB_HOST:DB_PORT.",
	models.CauseAuthFailed:        "Database authentication failed. Check DB_USER and DB_PASSWORD.",
	models.CauseHostUnresolved:    "Database host could not be resolved. Check DB_HOST.",
	models.CauseDatabaseMissing:   "Database does not exist. Create it or check DB_NAME.",
	models.CauseTimeout:           "Timed out connecting to the database. Check the network path and DB_CONNECT_TIMEOUT.",
}

// HintFor returns the hint carried by err when the database was unreachable.
func HintFor(err error) string {
	var down *models.StoreUnavailableError
	if errors.As(err, &down) {
		return down.Hint
	}
	return ""
}

func unavailable(cause string, err error) *models.StoreUnavailableError {
	return &models.StoreUnavailableError{Cause: cause, Hint: hints[cause], Err: err}
}

// classify turns connectivity failures into *models.StoreUnavailableError and
// leaves statement errors untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var already *models.StoreUnavailableError
	if errors.As(err, &already) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidPassword, codeInvalidAuth:
			return unavailable(models.CauseAuthFailed, err)
		case codeInvalidCatalog:
			return unavailable(models.CauseDatabaseMissing, err)
		case codeCannotConnectNow, codeTooManyConnections:
			return unavailable(models.CauseConnectionRefused, err)
		}
		return err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return unavailable(models.CauseHostUnresolved, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return unavailable(models.CauseConnectionRefused, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		if pgconn.Timeout(err) {
			return unavailable(models.CauseTimeout, err)
		}
		return unavailable(models.CauseConnectionRefused, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if opErr.Timeout() {
			return unavailable(models.CauseTimeout, err)
		}
		return unavailable(models.CauseConnectionRefused, err)
	}
	return err
}

func hasCode(err error, codes ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	for _, c := range codes {
		if pgErr.Code == c {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}
