package community

const (
	KindInsert = "INSERT"
	KindDelete = "DELETE"
)

// Event tells subscribers that a community's rows changed. Clients re-fetch on receipt.
type Event struct {
	CommunityID string `json:"community_id"`
	Table       string `json:"table"`
	Kind        string `json:"kind"`
}

// Notifier receives change events after each committed mutation.
type Notifier interface {
	Publish(event Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}
