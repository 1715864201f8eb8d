package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
}

func TestSetSubscribersPublishes(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	var p Product
	p.SetSubscribers([]int64{7, 8}, t0)
	require.NotNil(t, p.DatePublished)
	assert.Equal(t, t0, *p.DatePublished)

	// still published: keep the first publish time
	p.SetSubscribers([]int64{9}, t1)
	assert.Equal(t, t0, *p.DatePublished)
	assert.Equal(t, []int64{9}, p.Subscribers)

	p.SetSubscribers(nil, t1)
	assert.Nil(t, p.DatePublished)
	assert.Empty(t, p.Subscribers)

	p.SetSubscribers([]int64{1}, t1)
	require.NotNil(t, p.DatePublished)
	assert.Equal(t, t1, *p.DatePublished)
}

func TestSetSubscribersCopiesInput(t *testing.T) {
	in := []int64{1, 2}
	var p Product
	p.SetSubscribers(in, time.Now())
	in[0] = 99
	assert.Equal(t, []int64{1, 2}, p.Subscribers)
}

func TestUserProductIDs(t *testing.T) {
	u := User{ProductRefs: []ProductRef{{UserID: "u", ProductID: "a"}, {UserID: "u", ProductID: "b"}}}
	assert.Equal(t, []string{"a", "b"}, u.ProductIDs())
	assert.True(t, u.HasProduct("b"))
	assert.False(t, u.HasProduct("c"))
}

func TestBeforeCreateAssignsID(t *testing.T) {
	p := Product{}
	require.NoError(t, p.BeforeCreate(nil))
	assert.Len(t, p.ID, 36)

	u := User{ID: "fixed"}
	require.NoError(t, u.BeforeCreate(nil))
	assert.Equal(t, "fixed", u.ID)
}
