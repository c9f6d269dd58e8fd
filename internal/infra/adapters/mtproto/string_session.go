package mtproto

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"net"
	"strconv"

	"github.com/gotd/td/session"

	"telegram-account-manager/internal/domain/model"
)

// Session strings use the Telethon StringSession layout so stored sessions stay
// portable to other MTProto clients:
//
//	"1" + urlsafe_base64(dc_id:u8 | ip:4 or 16 bytes | port:u16be | auth_key:256 bytes)
const (
	stringSessionVersion = "1"
	authKeySize          = 256
)

// EncodeStringSession serializes ep as a session string.
func EncodeStringSession(ep model.SessionEndpoint) (string, error) {
	ip := net.ParseIP(ep.Address)
	if ip == nil {
		return "", fmt.Errorf("invalid server address %q", ep.Address)
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	} else {
		ip = ip.To16()
	}
	if ep.DC <= 0 || ep.DC > 255 {
		return "", fmt.Errorf("invalid dc id %d", ep.DC)
	}
	if ep.Port <= 0 || ep.Port > 65535 {
		return "", fmt.Errorf("invalid port %d", ep.Port)
	}
	if len(ep.AuthKey) != authKeySize {
		return "", fmt.Errorf("auth key must be %d bytes, got %d", authKeySize, len(ep.AuthKey))
	}

	buf := make([]byte, 0, 1+len(ip)+2+authKeySize)
	buf = append(buf, byte(ep.DC))
	buf = append(buf, ip...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(ep.Port))
	buf = append(buf, ep.AuthKey...)
	return stringSessionVersion + base64.URLEncoding.EncodeToString(buf), nil
}

// DecodeStringSession parses a session string back into its endpoint and auth key.
func DecodeStringSession(s string) (*model.SessionEndpoint, error) {
	data, err := session.TelethonSession(s)
	if err != nil {
		return nil, fmt.Errorf("decode session string: %w", err)
	}
	return endpointFromData(data)
}

func endpointFromData(data *session.Data) (*model.SessionEndpoint, error) {
	addr := data.Addr
	if addr == "" {
		addr = addrFromConfig(data)
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("session address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("session port %q: %w", portStr, err)
	}
	return &model.SessionEndpoint{
		DC:      data.DC,
		Address: host,
		Port:    port,
		AuthKey: data.AuthKey,
	}, nil
}

// addrFromConfig picks the first IPv4 option for the session's DC from the cached config.
func addrFromConfig(data *session.Data) string {
	for _, opt := range data.Config.DCOptions {
		if opt.ID == data.DC && !opt.Ipv6 && !opt.MediaOnly && !opt.CDN {
			return net.JoinHostPort(opt.IPAddress, strconv.Itoa(opt.Port))
		}
	}
	return ""
}

// encodeData turns stored gotd session data into a session string.
func encodeData(data *session.Data) (string, error) {
	ep, err := endpointFromData(data)
	if err != nil {
		return "", err
	}
	return EncodeStringSession(*ep)
}
