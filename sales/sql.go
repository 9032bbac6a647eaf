package sales

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// DefaultQuery selects the three columns LoadSQL expects from a table
// named orders.
const DefaultQuery = `SELECT order_date, category, sales FROM orders`

// OpenDB opens a database for LoadSQL. mysql:// and mariadb:// URLs are
// converted to the MySQL driver format; sqlite:// URLs, file: URIs and bare
// paths open SQLite.
func OpenDB(dsn string) (*sql.DB, error) {
	driver, source, err := resolveDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "mysql" {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

func resolveDSN(dsn string) (driver, source string, err error) {
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("empty dsn")
	case strings.HasPrefix(dsn, "mysql://"), strings.HasPrefix(dsn, "mariadb://"):
		source, err := toMySQLDSN(dsn)
		return "mysql", source, err
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.Contains(dsn, "@tcp("):
		return "mysql", dsn, nil
	default:
		return "sqlite", dsn, nil
	}
}

func toMySQLDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	user, pass := "", ""
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || u.Host == "" || db == "" {
		return "", fmt.Errorf("incomplete dsn: user, host and database are required")
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=false&loc=UTC&interpolateParams=true",
		user, pass, u.Host, db), nil
}

// LoadSQL runs query and reads (date, category, sales) from the first three
// columns of each row. Dates may be strings or timestamps; sales may be
// numeric or text. Rows are filtered the same way as LoadCSVFromReader.
func LoadSQL(ctx context.Context, db *sql.DB, query string) (*Dataset, LoadStats, error) {
	if query == "" {
		query = DefaultQuery
	}
	var st LoadStats

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, st, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			date     any
			category sql.NullString
			amount   any
		)
		if err := rows.Scan(&date, &category, &amount); err != nil {
			return nil, st, fmt.Errorf("scan sales row: %w", err)
		}
		st.Rows++

		rec, ok := parseRecord(sqlText(date), category.String, sqlText(amount), &st)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, st, fmt.Errorf("read sales rows: %w", err)
	}

	return &Dataset{records: records}, st, nil
}

// sqlText renders a scanned column value for the shared record parser.
func sqlText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
