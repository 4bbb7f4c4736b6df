package seed

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"time"

	"genfity-analytics-service/internal/analytics"
	"genfity-analytics-service/internal/finance"
	"genfity-analytics-service/internal/store"

	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"
	"github.com/schollz/progressbar/v3"
)

type menuItem struct {
	name     string
	category string
	price    float64
}

var menu = []menuItem{
	{"X-Burger", "Lanches", 28.90},
	{"X-Bacon", "Lanches", 32.50},
	{"Smash Duplo", "Lanches", 36.00},
	{"Pizza Calabresa", "Pizzas", 54.90},
	{"Pizza Margherita", "Pizzas", 49.90},
	{"Pizza Quatro Queijos", "Pizzas", 59.90},
	{"Batata Frita", "Porções", 22.00},
	{"Onion Rings", "Porções", 24.50},
	{"Refrigerante Lata", "Bebidas", 7.00},
	{"Suco Natural", "Bebidas", 11.00},
	{"Açaí 500ml", "Sobremesas", 19.90},
	{"Petit Gâteau", "Sobremesas", 21.00},
	{"Combo Executivo", "", 39.90},
}

var neighborhoods = []string{
	"Centro", "Jardins", "Vila Mariana", "Pinheiros", "Moema",
	"Tatuapé", "Santana", "Lapa", "Butantã", "Mooca",
}

type Options struct {
	Count     int
	Days      int
	Merchants int
	Seed      int64
	Now       time.Time
	// Progress receives a progress bar when set.
	Progress io.Writer
}

func (o Options) withDefaults() Options {
	if o.Count <= 0 {
		o.Count = 200
	}
	if o.Days <= 0 {
		o.Days = 30
	}
	if o.Merchants <= 0 {
		o.Merchants = 1
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	return o
}

type generator struct {
	rng     *rand.Rand
	fake    faker.Faker
	drivers []string
	streets []string
	now     time.Time
	days    int
}

// Generate builds a synthetic order history spread over the last Days days,
// oldest first. The same Seed yields the same orders except for ids.
func Generate(opts Options) []store.Record {
	opts = opts.withDefaults()
	g := &generator{
		rng:  rand.New(rand.NewSource(opts.Seed)),
		fake: faker.NewWithSeed(rand.NewSource(opts.Seed)),
		now:  opts.Now,
		days: opts.Days,
	}
	for i := 0; i < 6; i++ {
		g.drivers = append(g.drivers, g.fake.Person().FirstName()+" "+g.fake.Person().LastName())
	}
	for i := 0; i < 20; i++ {
		g.streets = append(g.streets, g.fake.Address().StreetName())
	}

	var bar *progressbar.ProgressBar
	if opts.Progress != nil {
		bar = progressbar.NewOptions(opts.Count,
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("generating orders"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	records := make([]store.Record, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		merchantID := int64(g.rng.Intn(opts.Merchants) + 1)
		records = append(records, store.Record{MerchantID: merchantID, Order: g.order()})
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records
}

func (g *generator) minutes(lo, hi float64) time.Duration {
	return time.Duration((lo + g.rng.Float64()*(hi-lo)) * float64(time.Minute))
}

func (g *generator) placedAt() time.Time {
	day := g.rng.Intn(g.days)
	base := g.now.AddDate(0, 0, -day)
	// Lunch and dinner peaks.
	hour := 11 + g.rng.Intn(3)
	if g.rng.Float64() < 0.6 {
		hour = 18 + g.rng.Intn(4)
	}
	ts := time.Date(base.Year(), base.Month(), base.Day(), hour, g.rng.Intn(60), g.rng.Intn(60), 0, base.Location())
	if ts.After(g.now) {
		ts = g.now.Add(-g.minutes(1, 90))
	}
	return ts
}

func (g *generator) items() ([]analytics.OrderItem, float64) {
	n := 1 + g.rng.Intn(4)
	items := make([]analytics.OrderItem, 0, n)
	subtotal := 0.0
	for i := 0; i < n; i++ {
		idx := g.rng.Intn(len(menu))
		entry := menu[idx]
		qty := float64(1 + g.rng.Intn(2))
		items = append(items, analytics.OrderItem{
			ID:       fmt.Sprintf("menu-%d", idx+1),
			Name:     entry.name,
			Category: entry.category,
			Quantity: qty,
			Price:    entry.price,
		})
		subtotal += entry.price * qty
	}
	return items, finance.RoundFinance(subtotal)
}

func (g *generator) address() string {
	street := g.streets[g.rng.Intn(len(g.streets))]
	number := 10 + g.rng.Intn(1990)
	if g.rng.Float64() < 0.05 {
		return fmt.Sprintf("%s, %d", street, number)
	}
	return fmt.Sprintf("%s, %d - %s", street, number, neighborhoods[g.rng.Intn(len(neighborhoods))])
}

func (g *generator) order() analytics.Order {
	ts := g.placedAt()
	items, subtotal := g.items()

	order := analytics.Order{
		ID:        cuid.New(),
		Timestamp: ts,
		Items:     items,
		Subtotal:  subtotal,
	}

	switch r := g.rng.Float64(); {
	case r < 0.6:
		order.Origin = analytics.OriginDelivery
		order.IsDelivery = true
		order.DeliveryFee = float64(5 + g.rng.Intn(8))
		order.Address = g.address()
		order.Coordinates = &analytics.Coordinates{
			Lat: -23.55 + (g.rng.Float64()-0.5)*0.2,
			Lng: -46.63 + (g.rng.Float64()-0.5)*0.2,
		}
	case r < 0.85:
		order.Origin = analytics.OriginTable
		order.TableNumber = analytics.TableRef(fmt.Sprint(1 + g.rng.Intn(30)))
	default:
		order.Origin = "BALCAO"
	}

	if g.rng.Float64() < 0.15 {
		order.Discount = finance.RoundFinance(subtotal * 0.1)
	}
	order.Total = finance.RoundFinance(subtotal + order.DeliveryFee - order.Discount)

	g.lifecycle(&order)
	return order
}

// lifecycle walks the order through its status timestamps. Older orders are
// finished; orders of the last hour may still be in flight.
func (g *generator) lifecycle(order *analytics.Order) {
	if g.rng.Float64() < 0.05 {
		order.Status = analytics.StatusCancelled
		return
	}

	prepared := order.Timestamp.Add(g.minutes(1, 8))
	dispatched := prepared.Add(g.minutes(8, 35))
	delivered := dispatched.Add(g.minutes(5, 30))

	if dispatched.After(g.now) {
		order.Status = analytics.StatusPreparing
		if prepared.Before(g.now) {
			order.PreparedAt = &prepared
		} else {
			order.Status = analytics.StatusPending
		}
		return
	}

	order.PreparedAt = &prepared
	order.DispatchedAt = &dispatched
	if !order.IsDelivery {
		order.Status = analytics.StatusReady
		if delivered.Before(g.now) {
			order.Status = analytics.StatusDelivered
			order.DeliveredAt = &delivered
		}
		return
	}

	order.DriverName = g.drivers[g.rng.Intn(len(g.drivers))]
	order.Status = analytics.StatusDispatched
	if delivered.Before(g.now) {
		order.Status = analytics.StatusDelivered
		order.DeliveredAt = &delivered
	}
}
