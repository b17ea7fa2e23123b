package kafka

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/turtacn/CiteDisrupt/pkg/errors"
)

// buildTLSConfig returns the TLS settings shared by producer and
// consumer connections. An empty certPath trusts the system roots; a
// set path must name a readable PEM bundle.
func buildTLSConfig(certPath string) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if certPath == "" {
		return cfg, nil
	}
	caCert, err := os.ReadFile(certPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "failed to read TLS certificate "+certPath)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New(errors.ErrCodeValidation, "no certificates found in "+certPath)
	}
	cfg.RootCAs = pool
	return cfg, nil
}

// buildSASLMechanism maps a mechanism name onto the matching SASL
// implementation.
func buildSASLMechanism(mechanism, username, password string) (sasl.Mechanism, error) {
	switch mechanism {
	case "PLAIN":
		return plain.Mechanism{Username: username, Password: password}, nil
	case "SCRAM-SHA-256":
		mech, err := scram.Mechanism(scram.SHA256, username, password)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create SASL mechanism")
		}
		return mech, nil
	case "SCRAM-SHA-512":
		mech, err := scram.Mechanism(scram.SHA512, username, password)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create SASL mechanism")
		}
		return mech, nil
	default:
		return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf("unsupported SASL mechanism %q", mechanism))
	}
}
