package entities

// User represents a marketplace participant. Agents carry a rating aggregate
// fed by reviews of the properties they represent.
type User struct {
	ID            string  `json:"id" db:"id"`
	Name          string  `json:"name" db:"name"`
	Email         string  `json:"email" db:"email"`
	Role          Role    `json:"role" db:"role"`
	AverageRating float64 `json:"average_rating" db:"average_rating"`
	RatingsCount  int     `json:"ratings_count" db:"ratings_count"`
	RatingsSum    int     `json:"-" db:"ratings_sum"`
	Timestamps
	SoftDelete
}

// ApplyRating moves the rating aggregate by a delta
func (u *User) ApplyRating(countDelta, sumDelta int) {
	u.RatingsCount += countDelta
	u.RatingsSum += sumDelta
	u.AverageRating = AverageOf(u.RatingsSum, u.RatingsCount)
}
