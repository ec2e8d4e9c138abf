package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

const leadColumns = `id, source_url, business_name, category, phone_number, normalized_phone,
	email, website_url, rating, review_count, priority_score,
	primary_channel, email_subject, email_draft, whatsapp_draft,
	state, is_queued, queued_at, sent_at, last_interaction_at, follow_up_count,
	created_at, updated_at`

// Repository is the pgx-backed implementation of LeadStore and UsageStore.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) UpsertBySourceURL(ctx context.Context, params UpsertLeadParams) (Lead, error) {
	var statePtr *string
	if params.State != nil {
		s := string(*params.State)
		statePtr = &s
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, source_url, business_name, category, phone_number, normalized_phone,
			email, website_url, rating, review_count, priority_score,
			primary_channel, email_subject, email_draft, whatsapp_draft, state
		) VALUES (
			$1, $2,
			COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, ''), COALESCE($6, ''),
			COALESCE($7, ''), COALESCE($8, ''), COALESCE($9, ''), COALESCE($10, ''),
			COALESCE($11, 0),
			COALESCE($12, ''), COALESCE($13, ''), COALESCE($14, ''), COALESCE($15, ''),
			COALESCE($16, 'DISCOVERED')
		)
		ON CONFLICT (source_url) DO UPDATE SET
			business_name    = COALESCE($3, leads.business_name),
			category         = COALESCE($4, leads.category),
			phone_number     = COALESCE($5, leads.phone_number),
			normalized_phone = COALESCE($6, leads.normalized_phone),
			email            = COALESCE($7, leads.email),
			website_url      = COALESCE($8, leads.website_url),
			rating           = COALESCE($9, leads.rating),
			review_count     = COALESCE($10, leads.review_count),
			priority_score   = COALESCE($11, leads.priority_score),
			primary_channel  = COALESCE($12, leads.primary_channel),
			email_subject    = COALESCE($13, leads.email_subject),
			email_draft      = COALESCE($14, leads.email_draft),
			whatsapp_draft   = COALESCE($15, leads.whatsapp_draft),
			state            = COALESCE($16, leads.state),
			updated_at       = now()
		RETURNING `+leadColumns,
		uuid.New(), params.SourceURL,
		params.BusinessName, params.Category, params.PhoneNumber, params.NormalizedPhone,
		params.Email, params.WebsiteURL, params.Rating, params.ReviewCount,
		params.PriorityScore,
		params.PrimaryChannel, params.EmailSubject, params.EmailDraft, params.WhatsAppDraft,
		statePtr,
	)

	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func (r *Repository) ListByState(ctx context.Context, state State) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE state = $1
		ORDER BY created_at ASC
	`, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (r *Repository) ListDispatchable(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE state = 'DRAFTED' AND is_queued = FALSE
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

func (r *Repository) CountQueuedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads WHERE is_queued = TRUE AND queued_at >= $1
	`, since).Scan(&count)
	return count, err
}

func (r *Repository) CountSentSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads WHERE sent_at >= $1
	`, since).Scan(&count)
	return count, err
}

func (r *Repository) CountBacklog(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads WHERE state IN ('QUEUED', 'DRAFTED')
	`).Scan(&count)
	return count, err
}

// SaveAll writes the mutable fields of every lead in one transaction, so an
// aging pass commits all of its transitions atomically.
func (r *Repository) SaveAll(ctx context.Context, leads []Lead) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, lead := range leads {
		_, err := tx.Exec(ctx, `
			UPDATE leads SET
				business_name = $2, category = $3, phone_number = $4, normalized_phone = $5,
				email = $6, website_url = $7, rating = $8, review_count = $9, priority_score = $10,
				primary_channel = $11, email_subject = $12, email_draft = $13, whatsapp_draft = $14,
				state = $15, is_queued = $16, queued_at = $17, sent_at = $18,
				last_interaction_at = $19, follow_up_count = $20,
				updated_at = now()
			WHERE id = $1
		`,
			lead.ID,
			lead.BusinessName, lead.Category, lead.PhoneNumber, lead.NormalizedPhone,
			lead.Email, lead.WebsiteURL, lead.Rating, lead.ReviewCount, lead.PriorityScore,
			lead.PrimaryChannel, lead.EmailSubject, lead.EmailDraft, lead.WhatsAppDraft,
			string(lead.State), lead.IsQueued, lead.QueuedAt, lead.SentAt,
			lead.LastInteractionAt, lead.FollowUpCount,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if lead.State == StateSent {
		return lead, nil
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET state = 'SENT', sent_at = now(), last_interaction_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id)
	return scanLead(row)
}

func (r *Repository) MarkReplied(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if lead.State == StateReplied {
		return lead, nil
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET state = 'REPLIED', last_interaction_at = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id)
	return scanLead(row)
}

func (r *Repository) MarkClosed(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if lead.State == StateClosed {
		return lead, nil
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET state = 'CLOSED', updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id)
	return scanLead(row)
}

func (r *Repository) StateCounts(ctx context.Context) (map[State]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT state, COUNT(*) FROM leads GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		counts[State(state)] = count
	}

	return counts, rows.Err()
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var state string
	err := row.Scan(
		&lead.ID, &lead.SourceURL, &lead.BusinessName, &lead.Category,
		&lead.PhoneNumber, &lead.NormalizedPhone,
		&lead.Email, &lead.WebsiteURL, &lead.Rating, &lead.ReviewCount, &lead.PriorityScore,
		&lead.PrimaryChannel, &lead.EmailSubject, &lead.EmailDraft, &lead.WhatsAppDraft,
		&state, &lead.IsQueued, &lead.QueuedAt, &lead.SentAt,
		&lead.LastInteractionAt, &lead.FollowUpCount,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, ErrNotFound
		}
		return Lead{}, err
	}
	lead.State = State(state)
	return lead, nil
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}
