package xid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixSale      = "SALE"
	PrefixTransfer  = "TRF"
	PrefixQuotation = "QUO"
)

// Number returns a document number of the form PREFIX-<unix millis>-<9 hex chars>.
func Number(prefix string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), suffix[:9])
}

func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
