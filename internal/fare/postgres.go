package fare

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// LoadTableFromPostgres reads pricing rules from the fare_rules table.
// Callers fall back to DefaultTable when the database is unreachable
// or holds no rules.
func LoadTableFromPostgres(dsn string) (*Table, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT service_type_id, name, base_rate_cents, per_km_rate_cents, minimum_billable_km FROM fare_rules`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ServiceTypeID, &r.Name, &r.BaseRateCents, &r.PerKmRateCents, &r.MinimumBillableKm); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, sql.ErrNoRows
	}
	return NewTable(rules), nil
}
