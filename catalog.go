package main

type StorePackage struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Chips int64   `json:"chips"`
	Price float64 `json:"price"`
}

var storePackages = []StorePackage{
	{ID: "starter", Label: "+10k", Chips: 10000, Price: 2.99},
	{ID: "boost", Label: "+50k", Chips: 50000, Price: 9.99},
	{ID: "pro", Label: "+250k", Chips: 250000, Price: 29.99},
}

// catalog returns a copy so callers cannot mutate the process-wide list.
func catalog() []StorePackage {
	out := make([]StorePackage, len(storePackages))
	copy(out, storePackages)
	return out
}
