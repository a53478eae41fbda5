package models

// UserView is the client-facing projection of a user.
// BirthDate is rendered as a plain calendar date.
type UserView struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	BirthDate   string `json:"birthDate"`
	Address     string `json:"address"`
	PhoneNumber int64  `json:"phoneNumber"`
}

func NewUserView(u *User) *UserView {
	return &UserView{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		BirthDate:   u.BirthDate.Format(DateLayout),
		Address:     u.Address,
		PhoneNumber: u.PhoneNumber,
	}
}

func NewUserViews(users []User) []*UserView {
	views := make([]*UserView, 0, len(users))
	for i := range users {
		views = append(views, NewUserView(&users[i]))
	}
	return views
}
