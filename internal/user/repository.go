package user

import "context"

// Repository defines data access for accounts. Get and FindByEmail load the
// user's roles with their granted permissions and visible menus.
type Repository interface {
	Get(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Add(ctx context.Context, u User) (int64, error)
	Update(ctx context.Context, u User) error
	Delete(ctx context.Context, id int64) error
}

// CodeSender dispatches a verification code to an address. The production
// implementation enqueues a background delivery task.
type CodeSender interface {
	SendCode(ctx context.Context, address, subject, code string) error
}
