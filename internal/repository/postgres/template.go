package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Berkaniis/survey-tool/internal/domain"
	"github.com/Berkaniis/survey-tool/internal/service/template"
)

// TemplateRepo implements template.Repository against PostgreSQL.
type TemplateRepo struct{ db *sql.DB }

// NewTemplateRepo creates a Postgres-backed template repository.
func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

func (r *TemplateRepo) Create(ctx context.Context, t *domain.EmailTemplate) error {
	vars, err := jsonMap(t.Variables)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO email_templates (id, name, subject, body, language, is_default,
		                             created_by, variables, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.Name, t.Subject, t.Body, t.Language, t.IsDefault,
		t.CreatedBy, vars, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *TemplateRepo) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	t := &domain.EmailTemplate{}
	var vars []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, subject, body, language, is_default,
		       COALESCE(created_by,''), variables, created_at, updated_at
		FROM email_templates
		WHERE id = $1
	`, id).Scan(
		&t.ID, &t.Name, &t.Subject, &t.Body, &t.Language, &t.IsDefault,
		&t.CreatedBy, &vars, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, template.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if err := scanJSONMap(vars, &t.Variables); err != nil {
		return nil, fmt.Errorf("decode template variables: %w", err)
	}
	return t, nil
}

func (r *TemplateRepo) List(ctx context.Context) ([]domain.EmailTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, subject, body, language, is_default,
		       COALESCE(created_by,''), variables, created_at, updated_at
		FROM email_templates
		ORDER BY is_default DESC, created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.EmailTemplate
	for rows.Next() {
		var t domain.EmailTemplate
		var vars []byte
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Subject, &t.Body, &t.Language, &t.IsDefault,
			&t.CreatedBy, &vars, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		if err := scanJSONMap(vars, &t.Variables); err != nil {
			return nil, fmt.Errorf("decode template variables: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TemplateRepo) Update(ctx context.Context, t *domain.EmailTemplate) error {
	vars, err := jsonMap(t.Variables)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE email_templates
		SET name = $1, subject = $2, body = $3, language = $4, is_default = $5,
		    variables = $6, updated_at = $7
		WHERE id = $8
	`, t.Name, t.Subject, t.Body, t.Language, t.IsDefault, vars, t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	if n == 0 {
		return template.ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n == 0 {
		return template.ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	c := &domain.Contact{}
	var extra []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, COALESCE(first_name,''), COALESCE(last_name,''), extra_data
		FROM contacts
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Email, &c.FirstName, &c.LastName, &extra)
	if err == sql.ErrNoRows {
		return nil, template.ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	if err := scanJSONMap(extra, &c.ExtraData); err != nil {
		return nil, fmt.Errorf("decode extra data: %w", err)
	}
	return c, nil
}
