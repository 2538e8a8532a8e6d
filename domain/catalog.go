package domain

// SeedCatalog is the initial course catalog written to an empty store.
func SeedCatalog() []Course {
	return []Course{
		{
			Name:        "Python Programming",
			Description: "Learn Python from basics to advanced, covering data structures, OOP, and web development.",
			Duration:    "12 weeks",
			Fee:         15000,
			Content:     "Basics, variables, loops, functions, OOP, data structures, file handling, web development with Flask, database integration.",
		},
		{
			Name:        "Java Development",
			Description: "Master Java for enterprise applications, including Spring and Hibernate frameworks.",
			Duration:    "10 weeks",
			Fee:         18000,
			Content:     "Core Java, OOP, collections, multithreading, Spring, Hibernate, REST APIs, database connectivity.",
		},
		{
			Name:        "Data Science",
			Description: "Explore data analysis, machine learning, and visualization with Python and R.",
			Duration:    "14 weeks",
			Fee:         22000,
			Content:     "Statistics, Python, R, pandas, NumPy, machine learning, deep learning, data visualization, big data basics.",
		},
		{
			Name:        "Web Development",
			Description: "Build modern websites with HTML, CSS, JavaScript, and React.",
			Duration:    "8 weeks",
			Fee:         13000,
			Content:     "HTML, CSS, JavaScript, DOM, React, Redux, API integration, responsive design.",
		},
	}
}
