package domain

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"stoqlib/pkg/orm"
	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

// LoginUserTable is the metadata for system principals.
var LoginUserTable = registry.MustRegister(schema.MustTable("LoginUser", []*schema.Column{
	schema.String("username").NotNull().AsUnique().WithMaxLen(64),
	schema.String("pw_hash").NotNull(),
	schema.String("full_name").Default(""),
	schema.Bool("is_active").Default(true),
	schema.Bool("is_admin").Default(false),
}))

// LoginUser is a person that can authenticate against the system.
type LoginUser struct {
	*orm.Record
}

// NewLoginUser starts a user in the creating state.
func NewLoginUser(tx *orm.Transaction) (*LoginUser, error) {
	rec, err := tx.Create("LoginUser")
	if err != nil {
		return nil, err
	}
	return &LoginUser{Record: rec}, nil
}

// GetLoginUser fetches a user by primary key.
func GetLoginUser(ctx context.Context, tx *orm.Transaction, id int64) (*LoginUser, error) {
	rec, err := tx.Get(ctx, "LoginUser", id)
	if err != nil {
		return nil, err
	}
	return &LoginUser{Record: rec}, nil
}

// LoginUserByUsername fetches a user by the username alternate ID.
func LoginUserByUsername(ctx context.Context, tx *orm.Transaction, username string) (*LoginUser, error) {
	rec, err := tx.FindByUnique(ctx, "LoginUser", "username", username)
	if err != nil {
		return nil, err
	}
	return &LoginUser{Record: rec}, nil
}

// Username returns the login name.
func (u *LoginUser) Username(ctx context.Context) (string, error) {
	v, err := u.Get(ctx, "username")
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

// SetUsername changes the login name.
func (u *LoginUser) SetUsername(ctx context.Context, username string) error {
	return u.Set(ctx, "username", username)
}

// IsActive reports whether the user may log in.
func (u *LoginUser) IsActive(ctx context.Context) (bool, error) {
	v, err := u.Get(ctx, "is_active")
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// IsAdmin reports whether the user holds the administrator role.
func (u *LoginUser) IsAdmin(ctx context.Context) (bool, error) {
	v, err := u.Get(ctx, "is_admin")
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}

// SetPassword stores a bcrypt hash of password.
func (u *LoginUser) SetPassword(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return u.Set(ctx, "pw_hash", string(hash))
}

// CheckPassword reports whether password matches the stored hash.
func (u *LoginUser) CheckPassword(ctx context.Context, password string) (bool, error) {
	v, err := u.Get(ctx, "pw_hash")
	if err != nil {
		return false, err
	}
	hash, _ := v.(string)
	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil, nil
}
