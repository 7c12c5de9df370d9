package egress

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "egress")
