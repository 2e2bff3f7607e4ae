package service

import (
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"wht-store-pay/internal/notify"
)

// SecLogAbuseReporter writes abuse signals to the security log and, from
// SeverityMedium up, to the alert chat.
type SecLogAbuseReporter struct {
	Log *logrus.Logger
}

func (a SecLogAbuseReporter) ReportAbuse(r *http.Request, severity int, message string) {
	fields := logrus.Fields{"severity": severity}
	alert := map[string]string{"severity": strconv.Itoa(severity), "message": message}
	if r != nil {
		fields["ip"] = r.RemoteAddr
		fields["ua"] = r.UserAgent()
		fields["path"] = r.URL.Path
		alert["ip"] = r.RemoteAddr
	}
	if a.Log != nil {
		a.Log.WithFields(fields).Warn(message)
	}
	if severity >= SeverityMedium {
		notify.NotifyAbuse("PayPal suspicious request", alert)
	}
}
