package store

import "context"

// GetDailyUsage returns the per-credential call counts recorded for a UTC
// calendar day ("2006-01-02"). Credentials with no row used nothing.
func (r *Repository) GetDailyUsage(ctx context.Context, day string) (map[int]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT credential_index, used
		FROM generation_usage
		WHERE usage_date = $1
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := make(map[int]int)
	for rows.Next() {
		var credential, used int
		if err := rows.Scan(&credential, &used); err != nil {
			return nil, err
		}
		usage[credential] = used
	}

	return usage, rows.Err()
}

// IncrementUsage records one successful generation call against a credential
// for the given UTC day.
func (r *Repository) IncrementUsage(ctx context.Context, credential int, day string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO generation_usage (credential_index, usage_date, used)
		VALUES ($1, $2, 1)
		ON CONFLICT (credential_index, usage_date)
		DO UPDATE SET used = generation_usage.used + 1
	`, credential, day)
	return err
}
