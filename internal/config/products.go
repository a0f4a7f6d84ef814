package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Product describes one purchasable credit product. Subscriptions renew and
// keep a single active grant per user; consumables top up pages once.
type Product struct {
	ID             string `mapstructure:"id"`
	Kind           string `mapstructure:"kind"`
	Pages          int    `mapstructure:"pages"`
	ExpirationDays int    `mapstructure:"expirationDays"`
	Period         string `mapstructure:"period"`
}

const (
	ProductKindSubscription = "subscription"
	ProductKindConsumable   = "consumable"
)

type ProductCatalog struct {
	Products []Product `mapstructure:"products"`
}

func (c ProductCatalog) Lookup(productID string) (Product, bool) {
	productID = strings.TrimSpace(productID)
	for _, p := range c.Products {
		if p.ID == productID {
			return p, true
		}
	}
	return Product{}, false
}

func DefaultProductCatalog() ProductCatalog {
	return ProductCatalog{
		Products: []Product{
			{ID: "fax_sub_100_monthly", Kind: ProductKindSubscription, Pages: 100, Period: "month"},
			{ID: "fax_sub_250_monthly", Kind: ProductKindSubscription, Pages: 250, Period: "month"},
			{ID: "fax_sub_1000_yearly", Kind: ProductKindSubscription, Pages: 1000, Period: "year"},
			{ID: "fax_pages_10", Kind: ProductKindConsumable, Pages: 10},
			{ID: "fax_pages_50", Kind: ProductKindConsumable, Pages: 50},
		},
	}
}

// ProductCatalogHolder serves the current catalog and hot-reloads it when
// the mounted config file changes.
type ProductCatalogHolder struct {
	current atomic.Value // holds ProductCatalog
}

func NewProductCatalogHolder() (*ProductCatalogHolder, error) {
	v := viper.New()

	v.SetConfigName("products")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fax-app/config") // Volume-mounted config
	v.AddConfigPath("/etc/fax-app")            // System config
	v.AddConfigPath(".")                       // Current directory (dev mode)

	v.SetEnvPrefix("FAXAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultProductCatalog()
		v.SetDefault("catalog.products", defaults.Products)
	}

	var catalog ProductCatalog
	if err := v.UnmarshalKey("catalog", &catalog); err != nil {
		return nil, err
	}
	if err := validateProductCatalog(catalog); err != nil {
		return nil, err
	}

	holder := &ProductCatalogHolder{}
	holder.current.Store(catalog)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ProductCatalog
		if err := v.UnmarshalKey("catalog", &updated); err != nil {
			log.Printf("[product-catalog] reload failed: %v", err)
			return
		}
		if err := validateProductCatalog(updated); err != nil {
			log.Printf("[product-catalog] invalid catalog ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[product-catalog] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *ProductCatalogHolder) Get() ProductCatalog {
	return h.current.Load().(ProductCatalog)
}

// NewStaticCatalogHolder wraps a fixed catalog, used by tests and by
// deployments that do not mount a catalog file.
func NewStaticCatalogHolder(catalog ProductCatalog) *ProductCatalogHolder {
	holder := &ProductCatalogHolder{}
	holder.current.Store(catalog)
	return holder
}

func validateProductCatalog(catalog ProductCatalog) error {
	if len(catalog.Products) == 0 {
		return errors.New("catalog.products cannot be empty")
	}
	for _, p := range catalog.Products {
		if strings.TrimSpace(p.ID) == "" {
			return errors.New("catalog product id cannot be empty")
		}
		if p.Kind != ProductKindSubscription && p.Kind != ProductKindConsumable {
			return errors.New("catalog product kind must be subscription or consumable")
		}
		if p.Pages <= 0 {
			return errors.New("catalog product pages must be positive")
		}
	}
	return nil
}
