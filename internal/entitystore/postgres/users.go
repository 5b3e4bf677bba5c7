package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/amd-aig-aima/bimserver/internal/apperrors"
	"github.com/amd-aig-aima/bimserver/internal/domain"
)

const tUsers = "users"

func (c *Client) CreateUser(ctx context.Context, u *domain.User) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Insert(tUsers).
		Columns("id", "subject", "email", "display_name", "created_at").
		Values(u.ID, u.Subject, u.Email, u.DisplayName, u.CreatedAt).
		ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build insert user")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewAlreadyExists("postgres: user %s already exists", u.Subject)
		}
		return apperrors.NewTransient(err, "postgres: insert user")
	}
	return nil
}

func (c *Client) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "subject", "email", "display_name", "created_at", "last_login_at").
		From(tUsers).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select user")
	}
	var u domain.User
	if err := c.get(ctx, &u, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: user %s not found", id)
	}
	return &u, nil
}

func (c *Client) GetUserBySubject(ctx context.Context, subject string) (*domain.User, error) {
	if err := c.requireDB(); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "subject", "email", "display_name", "created_at", "last_login_at").
		From(tUsers).Where(sq.Eq{"subject": subject}).ToSql()
	if err != nil {
		return nil, apperrors.NewInternal(err, "postgres: build select user by subject")
	}
	var u domain.User
	if err := c.get(ctx, &u, query, args...); err != nil {
		return nil, mapNotFound(err, "postgres: user with subject %s not found", subject)
	}
	return &u, nil
}

func (c *Client) TouchLastLogin(ctx context.Context, userID string) error {
	if err := c.requireDB(); err != nil {
		return err
	}
	query, args, err := psql.Update(tUsers).
		Set("last_login_at", sq.Expr("now()")).
		Where(sq.Eq{"id": userID}).ToSql()
	if err != nil {
		return apperrors.NewInternal(err, "postgres: build touch last login")
	}
	if _, err := c.exec(ctx, query, args...); err != nil {
		return apperrors.NewTransient(err, "postgres: touch last login")
	}
	return nil
}
