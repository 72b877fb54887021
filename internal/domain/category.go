package domain

// Category is a spending category for a transaction. The set is closed:
// anything outside it normalizes to CategoryOther.
type Category string

const (
	CategoryDining        Category = "Dining & Drinks"
	CategoryGroceries     Category = "Groceries"
	CategoryPets          Category = "Pets"
	CategoryBills         Category = "Bills & Utilities"
	CategoryPurchases     Category = "Shared Purchases"
	CategorySubscriptions Category = "Shared Subscriptions"
	CategoryTravel        Category = "Travel & Vacation"
	CategoryOther         Category = "Other"
)

// TrackedCategories returns every category that participates in per-person
// aggregation, i.e. everything except CategoryOther.
func TrackedCategories() []Category {
	return []Category{
		CategoryDining,
		CategoryGroceries,
		CategoryPets,
		CategoryBills,
		CategoryPurchases,
		CategorySubscriptions,
		CategoryTravel,
	}
}

// ParseCategory maps a raw CSV value onto the closed category set.
// Unknown values become CategoryOther; this is intentionally not an error.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryDining, CategoryGroceries, CategoryPets, CategoryBills,
		CategoryPurchases, CategorySubscriptions, CategoryTravel:
		return Category(s)
	default:
		return CategoryOther
	}
}
