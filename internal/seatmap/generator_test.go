package seatmap

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/event-ticketing/internal/model"
)

func TestBuildGridSeatsRowMajorOrder(t *testing.T) {
    seats, err := BuildGridSeats(GridSpec{
        Rows:    2,
        Cols:    3,
        Default: TierPrice{Tier: "GA", PriceCents: 1000},
    })
    require.NoError(t, err)
    require.Len(t, seats, 6)

    want := []model.Coord{{X: 1, Y: 1}, {X: 1, Y: 2}, {X: 1, Y: 3}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 2, Y: 3}}
    for i, c := range want {
        assert.Equal(t, c.X, seats[i].X)
        assert.Equal(t, c.Y, seats[i].Y)
        assert.Equal(t, "GA", seats[i].Tier)
        assert.Equal(t, uint32(1000), seats[i].PriceCents)
        assert.Equal(t, model.SeatAvailable, seats[i].Status)
    }
}

func TestBuildGridSeatsDeterministic(t *testing.T) {
    spec := GridSpec{
        Rows:    4,
        Cols:    4,
        Default: TierPrice{Tier: "GA", PriceCents: 1500},
        Rules: []RowRule{
            {Rows: []int{1}, Tier: "VIP", PriceCents: 5000},
        },
        Blocked: []model.Coord{{X: 2, Y: 2}},
    }
    first, err := BuildGridSeats(spec)
    require.NoError(t, err)
    second, err := BuildGridSeats(spec)
    require.NoError(t, err)
    assert.Equal(t, first, second)
}

func TestBuildGridSeatsLastRuleWins(t *testing.T) {
    seats, err := BuildGridSeats(GridSpec{
        Rows:    2,
        Cols:    1,
        Default: TierPrice{Tier: "GA", PriceCents: 1000},
        Rules: []RowRule{
            {Rows: []int{1}, Tier: "VIP", PriceCents: 5000},
            {Rows: []int{1}, Tier: "PREMIUM", PriceCents: 3000},
        },
    })
    require.NoError(t, err)
    require.Len(t, seats, 2)
    assert.Equal(t, "PREMIUM", seats[0].Tier)
    assert.Equal(t, uint32(3000), seats[0].PriceCents)
    assert.Equal(t, "GA", seats[1].Tier)
}

func TestBuildGridSeatsBlockedSkipped(t *testing.T) {
    seats, err := BuildGridSeats(GridSpec{
        Rows:    2,
        Cols:    2,
        Default: TierPrice{Tier: "GA", PriceCents: 1000},
        Blocked: []model.Coord{{X: 1, Y: 2}, {X: 2, Y: 1}},
    })
    require.NoError(t, err)
    require.Len(t, seats, 2)
    assert.Equal(t, model.Coord{X: 1, Y: 1}, seats[0].Coord())
    assert.Equal(t, model.Coord{X: 2, Y: 2}, seats[1].Coord())
}

func TestBuildGridSeatsValidation(t *testing.T) {
    cases := []struct {
        name string
        spec GridSpec
    }{
        {"zero rows", GridSpec{Rows: 0, Cols: 2, Default: TierPrice{Tier: "GA"}}},
        {"cols over max", GridSpec{Rows: 2, Cols: MaxGridDim + 1, Default: TierPrice{Tier: "GA"}}},
        {"missing default tier", GridSpec{Rows: 2, Cols: 2}},
        {"rule row out of range", GridSpec{
            Rows: 2, Cols: 2, Default: TierPrice{Tier: "GA"},
            Rules: []RowRule{{Rows: []int{3}, Tier: "VIP"}},
        }},
        {"rule without tier", GridSpec{
            Rows: 2, Cols: 2, Default: TierPrice{Tier: "GA"},
            Rules: []RowRule{{Rows: []int{1}}},
        }},
        {"blocked out of bounds", GridSpec{
            Rows: 2, Cols: 2, Default: TierPrice{Tier: "GA"},
            Blocked: []model.Coord{{X: 3, Y: 1}},
        }},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            seats, err := BuildGridSeats(tc.spec)
            require.Error(t, err)
            var specErr *SpecError
            assert.ErrorAs(t, err, &specErr)
            assert.Nil(t, seats)
        })
    }
}
