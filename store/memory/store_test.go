package memory

import (
	"testing"

	"github.com/room4-2/FrontDesk/domain"
	"github.com/room4-2/FrontDesk/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store {
		return NewStore()
	})
}
