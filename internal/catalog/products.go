package catalog

// products is the storefront inventory. Stock doubles as the per-line cart ceiling.
var products = []Product{
	{
		ID:            "1",
		Name:          "Elegant Black Midi Dress",
		Price:         149.99,
		OriginalPrice: 199.99,
		Image:         "/images/products/1/Elegant Black Midi Dress.jpg",
		Category:      "women",
		Subcategory:   "Dresses",
		Sizes:         []string{"XS", "S", "M", "L", "XL"},
		Colors:        []string{"Black", "Navy", "Gray"},
		Stock:         50,
	},
	{
		ID:            "2",
		Name:          "Classic White Button Shirt",
		Price:         89.99,
		OriginalPrice: 119.99,
		Image:         "/images/products/2/Classic White Button Shirt .jpg",
		Category:      "men",
		Subcategory:   "Shirts",
		Sizes:         []string{"S", "M", "L", "XL"},
		Colors:        []string{"White", "Light Blue", "Pink"},
		Stock:         25,
	},
	{
		ID:            "3",
		Name:          "Leather Crossbody Bag",
		Price:         199.99,
		OriginalPrice: 249.99,
		Image:         "/images/products/3/Leather Crossbody Bag .jpg",
		Category:      "accessories",
		Subcategory:   "Bags",
		Colors:        []string{"Brown", "Black", "Tan"},
		Stock:         75,
	},
	{
		ID:          "4",
		Name:        "Classic Sunglasses",
		Price:       129.99,
		Image:       "/images/products/4/Classic Sunglasses .jpg",
		Category:    "accessories",
		Subcategory: "Sunglasses",
		Colors:      []string{"Black", "Tortoise", "Gold"},
		Stock:       15,
	},
	{
		ID:          "11",
		Name:        "Floral Maxi Dress",
		Price:       89.99,
		Image:       "/images/products/11/Floral Maxi Dress .jpg",
		Category:    "women",
		Subcategory: "Dresses",
		Sizes:       []string{"XS", "S", "M", "L"},
		Colors:      []string{"Floral", "Navy"},
		Stock:       25,
	},
	{
		ID:          "12",
		Name:        "Silk Blouse",
		Price:       69.99,
		Image:       "/images/products/12/Silk Blouse .jpg",
		Category:    "women",
		Subcategory: "Tops",
		Sizes:       []string{"XS", "S", "M", "L", "XL"},
		Colors:      []string{"White", "Cream", "Pink"},
		Stock:       40,
	},
	{
		ID:          "13",
		Name:        "High-Waist Skinny Jeans",
		Price:       79.99,
		Image:       "/images/products/13/High-Waist Skinny Jeans .jpg",
		Category:    "women",
		Subcategory: "Bottoms",
		Sizes:       []string{"24", "26", "28", "30", "32"},
		Colors:      []string{"Dark Blue", "Light Blue", "Black"},
		Stock:       60,
	},
	{
		ID:            "14",
		Name:          "Wool Trench Coat",
		Price:         189.99,
		OriginalPrice: 239.99,
		Image:         "/images/products/14/Wool Trench Coat .jpg",
		Category:      "women",
		Subcategory:   "Outerwear",
		Sizes:         []string{"XS", "S", "M", "L", "XL"},
		Colors:        []string{"Beige", "Navy", "Black"},
		Stock:         20,
	},
	{
		ID:          "15",
		Name:        "Cashmere Sweater",
		Price:       129.99,
		Image:       "/images/products/15/Cashmere Sweater .jpg",
		Category:    "women",
		Subcategory: "Sweaters",
		Sizes:       []string{"XS", "S", "M", "L"},
		Colors:      []string{"Gray", "Pink", "Beige"},
		Stock:       35,
	},
	{
		ID:          "16",
		Name:        "Pleated Midi Skirt",
		Price:       59.99,
		Image:       "/images/products/16/Pleated Midi Skirt .jpg",
		Category:    "women",
		Subcategory: "Skirts",
		Sizes:       []string{"XS", "S", "M", "L", "XL"},
		Colors:      []string{"Black", "Navy", "Burgundy"},
		Stock:       45,
	},
	{
		ID:          "21",
		Name:        "Slim Fit Chinos",
		Price:       79.99,
		Image:       "/images/products/21/Slim Fit Chinos .jpg",
		Category:    "men",
		Subcategory: "Pants",
		Sizes:       []string{"30", "32", "34", "36", "38"},
		Colors:      []string{"Khaki", "Navy", "Gray"},
		Stock:       80,
	},
	{
		ID:            "22",
		Name:          "Wool Blazer",
		Price:         199.99,
		OriginalPrice: 259.99,
		Image:         "/images/products/22/Wool Blazer .jpg",
		Category:      "men",
		Subcategory:   "Blazers",
		Sizes:         []string{"38", "40", "42", "44", "46"},
		Colors:        []string{"Navy", "Charcoal", "Brown"},
		Stock:         25,
	},
	{
		ID:          "23",
		Name:        "Cotton Polo Shirt",
		Price:       49.99,
		Image:       "/images/products/23/Cotton Polo Shirt .jpg",
		Category:    "men",
		Subcategory: "Polo",
		Sizes:       []string{"S", "M", "L", "XL", "XXL"},
		Colors:      []string{"White", "Navy", "Green", "Red"},
		Stock:       90,
	},
	{
		ID:          "31",
		Name:        "Leather Belt",
		Price:       69.99,
		Image:       "/images/products/31/Leather Belt .jpg",
		Category:    "accessories",
		Subcategory: "Belts",
		Sizes:       []string{"32", "34", "36", "38", "40"},
		Colors:      []string{"Black", "Brown"},
		Stock:       50,
	},
	{
		ID:          "32",
		Name:        "Silk Scarf",
		Price:       89.99,
		Image:       "/images/products/32/Silk Scarf .jpg",
		Category:    "accessories",
		Subcategory: "Scarves",
		Colors:      []string{"Floral", "Geometric", "Solid"},
		Stock:       30,
	},
	{
		ID:            "41",
		Name:          "Running Sneakers",
		Price:         149.99,
		OriginalPrice: 179.99,
		Image:         "/images/products/41/Running Sneakers .jpg",
		Category:      "shoes",
		Subcategory:   "Sneakers",
		Sizes:         []string{"7", "8", "9", "10", "11", "12"},
		Colors:        []string{"White", "Black", "Gray"},
		Stock:         50,
	},
	{
		ID:          "42",
		Name:        "Leather Dress Shoes",
		Price:       199.99,
		Image:       "/images/products/42/Leather Dress Shoes .jpg",
		Category:    "shoes",
		Subcategory: "Dress",
		Sizes:       []string{"7", "8", "9", "10", "11", "12"},
		Colors:      []string{"Black", "Brown"},
		Stock:       35,
	},
	{
		ID:          "43",
		Name:        "Casual Loafers",
		Price:       129.99,
		Image:       "/images/products/43/Casual Loafers .jpg",
		Category:    "shoes",
		Subcategory: "Casual",
		Sizes:       []string{"7", "8", "9", "10", "11", "12"},
		Colors:      []string{"Brown", "Navy", "Black"},
		Stock:       45,
	},
}
