package loader

import (
	"context"

	"github.com/nao1215/storefront/internal/cache"
	"github.com/nao1215/storefront/internal/commerce"
	"github.com/nao1215/storefront/internal/request"
)

// FooterKey is the deferred key of the footer menu.
const FooterKey = "footer"

// FooterMenu returns the deferred query for the commerce menu named handle.
// A missing menu resolves to absent.
func FooterMenu(menuHandle string) DeferredQuery {
	return DeferredQuery{
		Key: FooterKey,
		Fetch: func(ctx context.Context, rc *request.Context) (any, error) {
			locale := rc.Locale()
			menu, err := rc.Commerce().Menu(ctx, commerce.MenuVariables{
				Language: locale.Language,
				Country:  locale.Country,
				Handle:   menuHandle,
			}, cache.Annotate(cache.PurposeFooterMenu, "query Footer", FooterKey))
			if err != nil {
				return nil, err
			}
			if menu == nil {
				return nil, ErrNotFound
			}
			return menu, nil
		},
	}
}
