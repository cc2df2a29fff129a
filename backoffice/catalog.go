// Package backoffice is the entity catalog of the back office: entity types,
// their validation rules and one resource client per entity.
package backoffice

import (
	"context"
	"fmt"
	"sort"

	"github.com/thomasjacksonsantos/querysync"
	"github.com/thomasjacksonsantos/querysync/resource"
	"github.com/thomasjacksonsantos/querysync/transport"
)

var (
	CustomerDef     = def("customer", "customers", "/customers")
	VehicleDef      = def("vehicle", "vehicles", "/vehicles")
	ProductGroupDef = def("productGroup", "productGroups", "/product-groups")
	PaymentFormDef  = def("paymentForm", "paymentForms", "/payment-forms")
	SupplierDef     = def("supplier", "suppliers", "/suppliers")
	ServiceOrderDef = def("serviceOrder", "serviceOrders", "/service-orders")
	CardBrandDef    = def("cardBrand", "cardBrands", "/card-brands")
	ManualEntryDef  = def("manualEntry", "manualEntries", "/manual-entries")
	OnboardingDef   = def("onboarding", "onboardings", "/onboarding")
)

// Definitions lists every resource of the catalog.
var Definitions = []resource.Definition{
	CustomerDef, VehicleDef, ProductGroupDef, PaymentFormDef, SupplierDef,
	ServiceOrderDef, CardBrandDef, ManualEntryDef, OnboardingDef,
}

func def(item, list, path string) resource.Definition {
	return resource.Definition{Name: item, ItemNamespace: item, ListNamespace: list, Path: path}
}

// Catalog holds one typed client per resource, all sharing one transport
// and one cache.
type Catalog struct {
	Customers     *resource.Client[Customer]
	Vehicles      *resource.Client[Vehicle]
	ProductGroups *resource.Client[ProductGroup]
	PaymentForms  *resource.Client[PaymentForm]
	Suppliers     *resource.Client[Supplier]
	ServiceOrders *resource.Client[ServiceOrder]
	CardBrands    *resource.Client[CardBrand]
	ManualEntries *resource.Client[ManualEntry]
	Onboardings   *resource.Client[Onboarding]

	readers map[string]Reader
}

func New(doer transport.Doer, sync *querysync.Client, opts ...resource.Option) *Catalog {
	c := &Catalog{
		Customers:     resource.MustNew[Customer](doer, sync, CustomerDef, opts...),
		Vehicles:      resource.MustNew[Vehicle](doer, sync, VehicleDef, opts...),
		ProductGroups: resource.MustNew[ProductGroup](doer, sync, ProductGroupDef, opts...),
		PaymentForms:  resource.MustNew[PaymentForm](doer, sync, PaymentFormDef, opts...),
		Suppliers:     resource.MustNew[Supplier](doer, sync, SupplierDef, opts...),
		ServiceOrders: resource.MustNew[ServiceOrder](doer, sync, ServiceOrderDef, opts...),
		CardBrands:    resource.MustNew[CardBrand](doer, sync, CardBrandDef, opts...),
		ManualEntries: resource.MustNew[ManualEntry](doer, sync, ManualEntryDef, opts...),
		Onboardings:   resource.MustNew[Onboarding](doer, sync, OnboardingDef, opts...),
	}
	c.readers = map[string]Reader{}
	add := func(r Reader) { c.readers[r.Definition().ListNamespace] = r }
	add(reader[Customer]{c.Customers, sync})
	add(reader[Vehicle]{c.Vehicles, sync})
	add(reader[ProductGroup]{c.ProductGroups, sync})
	add(reader[PaymentForm]{c.PaymentForms, sync})
	add(reader[Supplier]{c.Suppliers, sync})
	add(reader[ServiceOrder]{c.ServiceOrders, sync})
	add(reader[CardBrand]{c.CardBrands, sync})
	add(reader[ManualEntry]{c.ManualEntries, sync})
	add(reader[Onboarding]{c.Onboardings, sync})
	return c
}

// Reader is the untyped read side of a resource, used by tools that pick the
// resource by name.
type Reader interface {
	Definition() resource.Definition
	List(ctx context.Context, p resource.ListParams) (any, error)
	Get(ctx context.Context, id string) (any, error)
}

// Reader looks a resource up by its list namespace (e.g. "customers").
func (c *Catalog) Reader(name string) (Reader, error) {
	r, ok := c.readers[name]
	if !ok {
		return nil, fmt.Errorf("backoffice: unknown resource %q (have %v)", name, c.Names())
	}
	return r, nil
}

// Names returns the list namespaces, sorted.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.readers))
	for n := range c.readers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// reader reads through the cache when one is configured.
type reader[T any] struct {
	c    *resource.Client[T]
	sync *querysync.Client
}

func (r reader[T]) Definition() resource.Definition { return r.c.Definition() }

func (r reader[T]) List(ctx context.Context, p resource.ListParams) (any, error) {
	if r.sync == nil {
		return r.c.List(ctx, p)
	}
	return querysync.Fetch(ctx, r.sync, r.c.ListKey(p), func(ctx context.Context) (resource.Paged[T], error) {
		return r.c.List(ctx, p)
	})
}

func (r reader[T]) Get(ctx context.Context, id string) (any, error) {
	if r.sync == nil {
		return r.c.Get(ctx, id)
	}
	return querysync.Fetch(ctx, r.sync, r.c.ItemKey(id), func(ctx context.Context) (T, error) {
		return r.c.Get(ctx, id)
	})
}
