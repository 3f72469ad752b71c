package community

// Community describes one of the fixed support spaces.
type Community struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Members     int    `json:"members"`
}

var catalog = []Community{
	{ID: "anxiety", Name: "Anxiety Support", Description: "A gentle space to share and understand anxiety together", Members: 2341},
	{ID: "motivation", Name: "Motivation Circle", Description: "Uplift each other with encouragement and support", Members: 1876},
	{ID: "healing", Name: "Healing & Hope", Description: "Journey through recovery with compassionate souls", Members: 3102},
	{ID: "growth", Name: "Self-Growth", Description: "Discover your potential in a nurturing environment", Members: 2567},
	{ID: "night", Name: "Late-Night Talks", Description: "For those quiet hours when you need connection", Members: 1543},
}

// Catalog returns the communities in display order.
func Catalog() []Community {
	communities := make([]Community, len(catalog))
	copy(communities, catalog)
	return communities
}

// Lookup finds a community by id.
func Lookup(communityID string) (Community, bool) {
	for _, community := range catalog {
		if community.ID == communityID {
			return community, true
		}
	}
	return Community{}, false
}
