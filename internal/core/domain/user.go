package domain

import (
	"sort"
	"sync"
)

// User holds weak references (ids) to favorited pharmacies and to the
// medicines the user wants to be notified about.
type User struct {
	Username string `json:"username"`

	mu            sync.RWMutex
	favorites     map[string]struct{}
	subscriptions map[string]struct{}
}

func NewUser(username string) *User {
	return &User{
		Username:      username,
		favorites:     make(map[string]struct{}),
		subscriptions: make(map[string]struct{}),
	}
}

func (u *User) AddFavorite(pharmacyID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.favorites == nil {
		u.favorites = make(map[string]struct{})
	}
	u.favorites[pharmacyID] = struct{}{}
}

func (u *User) RemoveFavorite(pharmacyID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.favorites, pharmacyID)
}

func (u *User) Subscribe(medicineID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.subscriptions == nil {
		u.subscriptions = make(map[string]struct{})
	}
	u.subscriptions[medicineID] = struct{}{}
}

func (u *User) Unsubscribe(medicineID string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.subscriptions, medicineID)
}

func (u *User) Favors(pharmacyID string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.favorites[pharmacyID]
	return ok
}

func (u *User) WantsMedicine(medicineID string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	_, ok := u.subscriptions[medicineID]
	return ok
}

// Favorites returns the favorited pharmacy ids, sorted.
func (u *User) Favorites() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return sortedKeys(u.favorites)
}

// Subscriptions returns the subscribed medicine ids, sorted.
func (u *User) Subscriptions() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return sortedKeys(u.subscriptions)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
