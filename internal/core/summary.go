package core

// DailyTotals is one point of the income-vs-expense time series.
type DailyTotals struct {
	Date    Date    `json:"date"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// CategoryTotal is the summed expense amount of a single category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}
