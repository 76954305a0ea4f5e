package mercadopublico

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL      = "https://api.mercadopublico.cl/servicios/v1/publico"
	listingPath = "/licitaciones.json"

	// The listing endpoint is slow on busy days; each day gets its own
	// full timeout allotment.
	requestTimeout = 30 * time.Second

	// dateLayout is the ddMMyyyy format the listing endpoint expects.
	dateLayout = "02012006"

	// maxRangeDays caps a multi-day fetch. One request is issued per day
	// and the API bans callers that hammer it.
	maxRangeDays = 7
)

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	ticket     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func New(ctx context.Context, logger *zap.Logger, ticket string) *Client {
	return &Client{
		ctx:    ctx,
		ticket: ticket,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}
