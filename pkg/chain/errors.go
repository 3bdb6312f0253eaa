package chain

import "errors"

var errTickerStarted = errors.New("chain: ticker already running")
