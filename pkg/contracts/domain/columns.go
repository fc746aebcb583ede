package domain

// Source columns of the restaurant dataset
const (
	ColumnName      = "name"
	ColumnRate      = "rate"
	ColumnCost      = "approx_cost(for two people)"
	ColumnCuisines  = "cuisines"
	ColumnLocation  = "location"
	ColumnRestType  = "rest_type"
	ColumnDishLiked = "dish_liked"
)

// Derived columns produced by the pipeline
const (
	ColumnRateClean      = "rate_clean"
	ColumnCostForTwo     = "cost_for_two"
	ColumnNumCuisines    = "num_cuisines"
	ColumnCostCategory   = "cost_category"
	ColumnRatingCategory = "rating_category"
)

// Role is the semantic role of a column
type Role string

const (
	RoleUnknown     Role = "unknown"
	RoleIdentifier  Role = "identifier"
	RoleFreeText    Role = "free_text"
	RoleRating      Role = "rating"
	RoleCurrency    Role = "currency"
	RoleCategorical Role = "categorical"
	RoleCount       Role = "count"
)

// ColumnDescriptor describes what a column means and whether it may hold nulls
type ColumnDescriptor struct {
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	Nullable bool   `json:"nullable"`
}

var columnRegistry = map[string]ColumnDescriptor{
	ColumnName:           {Name: ColumnName, Role: RoleIdentifier, Nullable: true},
	ColumnRate:           {Name: ColumnRate, Role: RoleRating, Nullable: true},
	ColumnCost:           {Name: ColumnCost, Role: RoleCurrency, Nullable: true},
	ColumnCuisines:       {Name: ColumnCuisines, Role: RoleFreeText, Nullable: true},
	ColumnLocation:       {Name: ColumnLocation, Role: RoleFreeText, Nullable: true},
	ColumnRestType:       {Name: ColumnRestType, Role: RoleCategorical, Nullable: true},
	ColumnDishLiked:      {Name: ColumnDishLiked, Role: RoleFreeText, Nullable: true},
	ColumnRateClean:      {Name: ColumnRateClean, Role: RoleRating, Nullable: false},
	ColumnCostForTwo:     {Name: ColumnCostForTwo, Role: RoleCurrency, Nullable: true},
	ColumnNumCuisines:    {Name: ColumnNumCuisines, Role: RoleCount, Nullable: false},
	ColumnCostCategory:   {Name: ColumnCostCategory, Role: RoleCategorical, Nullable: true},
	ColumnRatingCategory: {Name: ColumnRatingCategory, Role: RoleCategorical, Nullable: true},
}

// DescribeColumn returns the registered descriptor for name, or an
// unknown-role nullable descriptor for columns outside the known set
func DescribeColumn(name string) ColumnDescriptor {
	if d, ok := columnRegistry[name]; ok {
		return d
	}
	return ColumnDescriptor{Name: name, Role: RoleUnknown, Nullable: true}
}
