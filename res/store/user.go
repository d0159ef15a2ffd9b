package store

type UserPlan string

const (
	UserPlanFree UserPlan = "free" // Default plan on first sign-in
	UserPlanPro  UserPlan = "pro"  // Paid plan (set via billing flow, not here)
)

// User mirrors the users table owned by the migration registry; columns are
// login (primary key), name and plan only.
type User struct {
	Login string `gorm:"column:login;primaryKey;size:256"`
	Name  string `gorm:"column:name;size:256;not null"`

	Plan UserPlan `gorm:"column:plan;size:50;not null;default:'free'"`
}

func (u *User) IsFreePlan() bool {
	return u.Plan == UserPlanFree || u.Plan == ""
}
