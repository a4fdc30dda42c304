package admind

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/presbrey/ircd/irc/server"
)

// Status summarizes the running server.
type Status struct {
	Server      string    `json:"server"`
	Network     string    `json:"network"`
	Version     string    `json:"version"`
	Created     time.Time `json:"created"`
	Uptime      string    `json:"uptime"`
	Users       int       `json:"users"`
	Channels    int       `json:"channels"`
	Connections int       `json:"connections"`
}

// NoticeRequest is the body of POST /api/channels/:name/notice.
type NoticeRequest struct {
	Text string `json:"text" validate:"required,max=400,irc_text"`
}

// NoticeResponse reports how many members the notice was queued for.
type NoticeResponse struct {
	Channel   string `json:"channel"`
	Delivered int    `json:"delivered"`
}

func (s *Server) handleStatus(c echo.Context) error {
	cfg := s.irc.GetConfig()
	reg := s.irc.Registry()
	return c.JSON(http.StatusOK, Status{
		Server:      reg.Hostname(),
		Network:     cfg.Server.Network,
		Version:     cfg.Server.Version,
		Created:     reg.Created(),
		Uptime:      s.irc.GetUptime().Round(time.Second).String(),
		Users:       reg.UserCount(),
		Channels:    reg.ChannelCount(),
		Connections: s.irc.ConnectionCount(),
	})
}

func (s *Server) handleChannels(c echo.Context) error {
	return c.JSON(http.StatusOK, s.irc.Registry().Channels())
}

func (s *Server) handleChannel(c echo.Context) error {
	name, err := channelParam(c)
	if err != nil {
		return err
	}
	info, ok := s.irc.Registry().Channel(name)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no such channel")
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleNotice(c echo.Context) error {
	name, err := channelParam(c)
	if err != nil {
		return err
	}

	var req NoticeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	delivered, err := s.irc.Registry().Announce(name, req.Text)
	if errors.Is(err, server.ErrNoSuchChannel) {
		return echo.NewHTTPError(http.StatusNotFound, "no such channel")
	}
	if err != nil {
		return err
	}

	log.Printf("[admin] Notice to %s queued for %d members", name, delivered)
	return c.JSON(http.StatusOK, NoticeResponse{Channel: name, Delivered: delivered})
}

func (s *Server) handleUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.irc.Registry().Users())
}

func (s *Server) handleUser(c echo.Context) error {
	nick, err := url.PathUnescape(c.Param("nick"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid nickname")
	}
	info, ok := s.irc.Registry().Lookup(nick)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no such nick")
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleConnections(c echo.Context) error {
	return c.JSON(http.StatusOK, s.irc.Connections())
}

// channelParam reads :name. A bare name means the #channel of that name.
func channelParam(c echo.Context) (string, error) {
	name, err := url.PathUnescape(c.Param("name"))
	if err != nil || name == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid channel name")
	}
	if !server.IsChannelName(name) {
		name = "#" + name
	}
	return name, nil
}
