package irc

import (
	"fmt"
	"strconv"
	"strings"
)

// ReplyCode is a three-digit numeric reply.
type ReplyCode int

// Numeric replies from RFC 1459 and RFC 2812. ERR_UNKNOWNERROR is the
// widely deployed extension used for internal failures.
const (
	RPL_WELCOME          ReplyCode = 1
	RPL_YOURHOST         ReplyCode = 2
	RPL_CREATED          ReplyCode = 3
	RPL_MYINFO           ReplyCode = 4
	RPL_ISUPPORT         ReplyCode = 5
	RPL_BOUNCE           ReplyCode = 10
	RPL_TRACELINK        ReplyCode = 200
	RPL_TRACECONNECTING  ReplyCode = 201
	RPL_TRACEHANDSHAKE   ReplyCode = 202
	RPL_TRACEUNKNOWN     ReplyCode = 203
	RPL_TRACEOPERATOR    ReplyCode = 204
	RPL_TRACEUSER        ReplyCode = 205
	RPL_TRACESERVER      ReplyCode = 206
	RPL_TRACESERVICE     ReplyCode = 207
	RPL_TRACENEWTYPE     ReplyCode = 208
	RPL_TRACECLASS       ReplyCode = 209
	RPL_STATSLINKINFO    ReplyCode = 211
	RPL_STATSCOMMANDS    ReplyCode = 212
	RPL_STATSCLINE       ReplyCode = 213
	RPL_STATSNLINE       ReplyCode = 214
	RPL_STATSILINE       ReplyCode = 215
	RPL_STATSKLINE       ReplyCode = 216
	RPL_STATSQLINE       ReplyCode = 217
	RPL_STATSYLINE       ReplyCode = 218
	RPL_ENDOFSTATS       ReplyCode = 219
	RPL_UMODEIS          ReplyCode = 221
	RPL_SERVICEINFO      ReplyCode = 231
	RPL_ENDOFSERVICES    ReplyCode = 232
	RPL_SERVICE          ReplyCode = 233
	RPL_SERVLIST         ReplyCode = 234
	RPL_SERVLISTEND      ReplyCode = 235
	RPL_STATSLLINE       ReplyCode = 241
	RPL_STATSUPTIME      ReplyCode = 242
	RPL_STATSOLINE       ReplyCode = 243
	RPL_STATSHLINE       ReplyCode = 244
	RPL_LUSERCLIENT      ReplyCode = 251
	RPL_LUSEROP          ReplyCode = 252
	RPL_LUSERUNKNOWN     ReplyCode = 253
	RPL_LUSERCHANNELS    ReplyCode = 254
	RPL_LUSERME          ReplyCode = 255
	RPL_ADMINME          ReplyCode = 256
	RPL_ADMINLOC1        ReplyCode = 257
	RPL_ADMINLOC2        ReplyCode = 258
	RPL_ADMINEMAIL       ReplyCode = 259
	RPL_TRACELOG         ReplyCode = 261
	RPL_NONE             ReplyCode = 300
	RPL_AWAY             ReplyCode = 301
	RPL_USERHOST         ReplyCode = 302
	RPL_ISON             ReplyCode = 303
	RPL_UNAWAY           ReplyCode = 305
	RPL_NOWAWAY          ReplyCode = 306
	RPL_WHOISUSER        ReplyCode = 311
	RPL_WHOISSERVER      ReplyCode = 312
	RPL_WHOISOPERATOR    ReplyCode = 313
	RPL_WHOWASUSER       ReplyCode = 314
	RPL_ENDOFWHO         ReplyCode = 315
	RPL_WHOISCHANOP      ReplyCode = 316
	RPL_WHOISIDLE        ReplyCode = 317
	RPL_ENDOFWHOIS       ReplyCode = 318
	RPL_WHOISCHANNELS    ReplyCode = 319
	RPL_LISTSTART        ReplyCode = 321
	RPL_LIST             ReplyCode = 322
	RPL_LISTEND          ReplyCode = 323
	RPL_CHANNELMODEIS    ReplyCode = 324
	RPL_NOTOPIC          ReplyCode = 331
	RPL_TOPIC            ReplyCode = 332
	RPL_INVITING         ReplyCode = 341
	RPL_SUMMONING        ReplyCode = 342
	RPL_VERSION          ReplyCode = 351
	RPL_WHOREPLY         ReplyCode = 352
	RPL_NAMREPLY         ReplyCode = 353
	RPL_KILLDONE         ReplyCode = 361
	RPL_CLOSING          ReplyCode = 362
	RPL_CLOSEEND         ReplyCode = 363
	RPL_LINKS            ReplyCode = 364
	RPL_ENDOFLINKS       ReplyCode = 365
	RPL_ENDOFNAMES       ReplyCode = 366
	RPL_BANLIST          ReplyCode = 367
	RPL_ENDOFBANLIST     ReplyCode = 368
	RPL_ENDOFWHOWAS      ReplyCode = 369
	RPL_INFO             ReplyCode = 371
	RPL_MOTD             ReplyCode = 372
	RPL_INFOSTART        ReplyCode = 373
	RPL_ENDOFINFO        ReplyCode = 374
	RPL_MOTDSTART        ReplyCode = 375
	RPL_ENDOFMOTD        ReplyCode = 376
	RPL_YOUREOPER        ReplyCode = 381
	RPL_REHASHING        ReplyCode = 382
	RPL_MYPORTIS         ReplyCode = 384
	RPL_TIME             ReplyCode = 391
	RPL_USERSSTART       ReplyCode = 392
	RPL_USERS            ReplyCode = 393
	RPL_ENDOFUSERS       ReplyCode = 394
	RPL_NOUSERS          ReplyCode = 395
	ERR_UNKNOWNERROR     ReplyCode = 400
	ERR_NOSUCHNICK       ReplyCode = 401
	ERR_NOSUCHSERVER     ReplyCode = 402
	ERR_NOSUCHCHANNEL    ReplyCode = 403
	ERR_CANNOTSENDTOCHAN ReplyCode = 404
	ERR_TOOMANYCHANNELS  ReplyCode = 405
	ERR_WASNOSUCHNICK    ReplyCode = 406
	ERR_TOOMANYTARGETS   ReplyCode = 407
	ERR_NOORIGIN         ReplyCode = 409
	ERR_NORECIPIENT      ReplyCode = 411
	ERR_NOTEXTTOSEND     ReplyCode = 412
	ERR_NOTOPLEVEL       ReplyCode = 413
	ERR_WILDTOPLEVEL     ReplyCode = 414
	ERR_UNKNOWNCOMMAND   ReplyCode = 421
	ERR_NOMOTD           ReplyCode = 422
	ERR_NOADMININFO      ReplyCode = 423
	ERR_FILEERROR        ReplyCode = 424
	ERR_NONICKNAMEGIVEN  ReplyCode = 431
	ERR_ERRONEUSNICKNAME ReplyCode = 432
	ERR_NICKNAMEINUSE    ReplyCode = 433
	ERR_NICKCOLLISION    ReplyCode = 436
	ERR_USERNOTINCHANNEL ReplyCode = 441
	ERR_NOTONCHANNEL     ReplyCode = 442
	ERR_USERONCHANNEL    ReplyCode = 443
	ERR_NOLOGIN          ReplyCode = 444
	ERR_SUMMONDISABLED   ReplyCode = 445
	ERR_USERSDISABLED    ReplyCode = 446
	ERR_NOTREGISTERED    ReplyCode = 451
	ERR_NEEDMOREPARAMS   ReplyCode = 461
	ERR_ALREADYREGISTRED ReplyCode = 462
	ERR_NOPERMFORHOST    ReplyCode = 463
	ERR_PASSWDMISMATCH   ReplyCode = 464
	ERR_YOUREBANNEDCREEP ReplyCode = 465
	ERR_YOUWILLBEBANNED  ReplyCode = 466
	ERR_KEYSET           ReplyCode = 467
	ERR_CHANNELISFULL    ReplyCode = 471
	ERR_UNKNOWNMODE      ReplyCode = 472
	ERR_INVITEONLYCHAN   ReplyCode = 473
	ERR_BANNEDFROMCHAN   ReplyCode = 474
	ERR_BADCHANNELKEY    ReplyCode = 475
	ERR_BADCHANMASK      ReplyCode = 476
	ERR_NOPRIVILEGES     ReplyCode = 481
	ERR_CHANOPRIVSNEEDED ReplyCode = 482
	ERR_CANTKILLSERVER   ReplyCode = 483
	ERR_NOOPERHOST       ReplyCode = 491
	ERR_NOSERVICEHOST    ReplyCode = 492
	ERR_UMODEUNKNOWNFLAG ReplyCode = 501
	ERR_USERSDONTMATCH   ReplyCode = 502
)

var replyNames = map[ReplyCode]string{
	RPL_WELCOME:          "RPL_WELCOME",
	RPL_YOURHOST:         "RPL_YOURHOST",
	RPL_CREATED:          "RPL_CREATED",
	RPL_MYINFO:           "RPL_MYINFO",
	RPL_ISUPPORT:         "RPL_ISUPPORT",
	RPL_BOUNCE:           "RPL_BOUNCE",
	RPL_TRACELINK:        "RPL_TRACELINK",
	RPL_TRACECONNECTING:  "RPL_TRACECONNECTING",
	RPL_TRACEHANDSHAKE:   "RPL_TRACEHANDSHAKE",
	RPL_TRACEUNKNOWN:     "RPL_TRACEUNKNOWN",
	RPL_TRACEOPERATOR:    "RPL_TRACEOPERATOR",
	RPL_TRACEUSER:        "RPL_TRACEUSER",
	RPL_TRACESERVER:      "RPL_TRACESERVER",
	RPL_TRACESERVICE:     "RPL_TRACESERVICE",
	RPL_TRACENEWTYPE:     "RPL_TRACENEWTYPE",
	RPL_TRACECLASS:       "RPL_TRACECLASS",
	RPL_STATSLINKINFO:    "RPL_STATSLINKINFO",
	RPL_STATSCOMMANDS:    "RPL_STATSCOMMANDS",
	RPL_STATSCLINE:       "RPL_STATSCLINE",
	RPL_STATSNLINE:       "RPL_STATSNLINE",
	RPL_STATSILINE:       "RPL_STATSILINE",
	RPL_STATSKLINE:       "RPL_STATSKLINE",
	RPL_STATSQLINE:       "RPL_STATSQLINE",
	RPL_STATSYLINE:       "RPL_STATSYLINE",
	RPL_ENDOFSTATS:       "RPL_ENDOFSTATS",
	RPL_UMODEIS:          "RPL_UMODEIS",
	RPL_SERVICEINFO:      "RPL_SERVICEINFO",
	RPL_ENDOFSERVICES:    "RPL_ENDOFSERVICES",
	RPL_SERVICE:          "RPL_SERVICE",
	RPL_SERVLIST:         "RPL_SERVLIST",
	RPL_SERVLISTEND:      "RPL_SERVLISTEND",
	RPL_STATSLLINE:       "RPL_STATSLLINE",
	RPL_STATSUPTIME:      "RPL_STATSUPTIME",
	RPL_STATSOLINE:       "RPL_STATSOLINE",
	RPL_STATSHLINE:       "RPL_STATSHLINE",
	RPL_LUSERCLIENT:      "RPL_LUSERCLIENT",
	RPL_LUSEROP:          "RPL_LUSEROP",
	RPL_LUSERUNKNOWN:     "RPL_LUSERUNKNOWN",
	RPL_LUSERCHANNELS:    "RPL_LUSERCHANNELS",
	RPL_LUSERME:          "RPL_LUSERME",
	RPL_ADMINME:          "RPL_ADMINME",
	RPL_ADMINLOC1:        "RPL_ADMINLOC1",
	RPL_ADMINLOC2:        "RPL_ADMINLOC2",
	RPL_ADMINEMAIL:       "RPL_ADMINEMAIL",
	RPL_TRACELOG:         "RPL_TRACELOG",
	RPL_NONE:             "RPL_NONE",
	RPL_AWAY:             "RPL_AWAY",
	RPL_USERHOST:         "RPL_USERHOST",
	RPL_ISON:             "RPL_ISON",
	RPL_UNAWAY:           "RPL_UNAWAY",
	RPL_NOWAWAY:          "RPL_NOWAWAY",
	RPL_WHOISUSER:        "RPL_WHOISUSER",
	RPL_WHOISSERVER:      "RPL_WHOISSERVER",
	RPL_WHOISOPERATOR:    "RPL_WHOISOPERATOR",
	RPL_WHOWASUSER:       "RPL_WHOWASUSER",
	RPL_ENDOFWHO:         "RPL_ENDOFWHO",
	RPL_WHOISCHANOP:      "RPL_WHOISCHANOP",
	RPL_WHOISIDLE:        "RPL_WHOISIDLE",
	RPL_ENDOFWHOIS:       "RPL_ENDOFWHOIS",
	RPL_WHOISCHANNELS:    "RPL_WHOISCHANNELS",
	RPL_LISTSTART:        "RPL_LISTSTART",
	RPL_LIST:             "RPL_LIST",
	RPL_LISTEND:          "RPL_LISTEND",
	RPL_CHANNELMODEIS:    "RPL_CHANNELMODEIS",
	RPL_NOTOPIC:          "RPL_NOTOPIC",
	RPL_TOPIC:            "RPL_TOPIC",
	RPL_INVITING:         "RPL_INVITING",
	RPL_SUMMONING:        "RPL_SUMMONING",
	RPL_VERSION:          "RPL_VERSION",
	RPL_WHOREPLY:         "RPL_WHOREPLY",
	RPL_NAMREPLY:         "RPL_NAMREPLY",
	RPL_KILLDONE:         "RPL_KILLDONE",
	RPL_CLOSING:          "RPL_CLOSING",
	RPL_CLOSEEND:         "RPL_CLOSEEND",
	RPL_LINKS:            "RPL_LINKS",
	RPL_ENDOFLINKS:       "RPL_ENDOFLINKS",
	RPL_ENDOFNAMES:       "RPL_ENDOFNAMES",
	RPL_BANLIST:          "RPL_BANLIST",
	RPL_ENDOFBANLIST:     "RPL_ENDOFBANLIST",
	RPL_ENDOFWHOWAS:      "RPL_ENDOFWHOWAS",
	RPL_INFO:             "RPL_INFO",
	RPL_MOTD:             "RPL_MOTD",
	RPL_INFOSTART:        "RPL_INFOSTART",
	RPL_ENDOFINFO:        "RPL_ENDOFINFO",
	RPL_MOTDSTART:        "RPL_MOTDSTART",
	RPL_ENDOFMOTD:        "RPL_ENDOFMOTD",
	RPL_YOUREOPER:        "RPL_YOUREOPER",
	RPL_REHASHING:        "RPL_REHASHING",
	RPL_MYPORTIS:         "RPL_MYPORTIS",
	RPL_TIME:             "RPL_TIME",
	RPL_USERSSTART:       "RPL_USERSSTART",
	RPL_USERS:            "RPL_USERS",
	RPL_ENDOFUSERS:       "RPL_ENDOFUSERS",
	RPL_NOUSERS:          "RPL_NOUSERS",
	ERR_UNKNOWNERROR:     "ERR_UNKNOWNERROR",
	ERR_NOSUCHNICK:       "ERR_NOSUCHNICK",
	ERR_NOSUCHSERVER:     "ERR_NOSUCHSERVER",
	ERR_NOSUCHCHANNEL:    "ERR_NOSUCHCHANNEL",
	ERR_CANNOTSENDTOCHAN: "ERR_CANNOTSENDTOCHAN",
	ERR_TOOMANYCHANNELS:  "ERR_TOOMANYCHANNELS",
	ERR_WASNOSUCHNICK:    "ERR_WASNOSUCHNICK",
	ERR_TOOMANYTARGETS:   "ERR_TOOMANYTARGETS",
	ERR_NOORIGIN:         "ERR_NOORIGIN",
	ERR_NORECIPIENT:      "ERR_NORECIPIENT",
	ERR_NOTEXTTOSEND:     "ERR_NOTEXTTOSEND",
	ERR_NOTOPLEVEL:       "ERR_NOTOPLEVEL",
	ERR_WILDTOPLEVEL:     "ERR_WILDTOPLEVEL",
	ERR_UNKNOWNCOMMAND:   "ERR_UNKNOWNCOMMAND",
	ERR_NOMOTD:           "ERR_NOMOTD",
	ERR_NOADMININFO:      "ERR_NOADMININFO",
	ERR_FILEERROR:        "ERR_FILEERROR",
	ERR_NONICKNAMEGIVEN:  "ERR_NONICKNAMEGIVEN",
	ERR_ERRONEUSNICKNAME: "ERR_ERRONEUSNICKNAME",
	ERR_NICKNAMEINUSE:    "ERR_NICKNAMEINUSE",
	ERR_NICKCOLLISION:    "ERR_NICKCOLLISION",
	ERR_USERNOTINCHANNEL: "ERR_USERNOTINCHANNEL",
	ERR_NOTONCHANNEL:     "ERR_NOTONCHANNEL",
	ERR_USERONCHANNEL:    "ERR_USERONCHANNEL",
	ERR_NOLOGIN:          "ERR_NOLOGIN",
	ERR_SUMMONDISABLED:   "ERR_SUMMONDISABLED",
	ERR_USERSDISABLED:    "ERR_USERSDISABLED",
	ERR_NOTREGISTERED:    "ERR_NOTREGISTERED",
	ERR_NEEDMOREPARAMS:   "ERR_NEEDMOREPARAMS",
	ERR_ALREADYREGISTRED: "ERR_ALREADYREGISTRED",
	ERR_NOPERMFORHOST:    "ERR_NOPERMFORHOST",
	ERR_PASSWDMISMATCH:   "ERR_PASSWDMISMATCH",
	ERR_YOUREBANNEDCREEP: "ERR_YOUREBANNEDCREEP",
	ERR_YOUWILLBEBANNED:  "ERR_YOUWILLBEBANNED",
	ERR_KEYSET:           "ERR_KEYSET",
	ERR_CHANNELISFULL:    "ERR_CHANNELISFULL",
	ERR_UNKNOWNMODE:      "ERR_UNKNOWNMODE",
	ERR_INVITEONLYCHAN:   "ERR_INVITEONLYCHAN",
	ERR_BANNEDFROMCHAN:   "ERR_BANNEDFROMCHAN",
	ERR_BADCHANNELKEY:    "ERR_BADCHANNELKEY",
	ERR_BADCHANMASK:      "ERR_BADCHANMASK",
	ERR_NOPRIVILEGES:     "ERR_NOPRIVILEGES",
	ERR_CHANOPRIVSNEEDED: "ERR_CHANOPRIVSNEEDED",
	ERR_CANTKILLSERVER:   "ERR_CANTKILLSERVER",
	ERR_NOOPERHOST:       "ERR_NOOPERHOST",
	ERR_NOSERVICEHOST:    "ERR_NOSERVICEHOST",
	ERR_UMODEUNKNOWNFLAG: "ERR_UMODEUNKNOWNFLAG",
	ERR_USERSDONTMATCH:   "ERR_USERSDONTMATCH",
}

var replyCodes = func() map[string]ReplyCode {
	m := make(map[string]ReplyCode, len(replyNames))
	for code, name := range replyNames {
		m[name] = code
	}
	return m
}()

// String returns the symbolic name, e.g. ERR_NICKNAMEINUSE.
func (c ReplyCode) String() string {
	if name, ok := replyNames[c]; ok {
		return name
	}
	return fmt.Sprintf("%03d", int(c))
}

// LookupReply resolves a three-digit code or a symbolic name.
func LookupReply(token string) (ReplyCode, bool) {
	if len(token) == 3 && isDigits(token) {
		n, _ := strconv.Atoi(token)
		code := ReplyCode(n)
		_, ok := replyNames[code]
		return code, ok
	}
	code, ok := replyCodes[strings.ToUpper(token)]
	return code, ok
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Reply is a numeric reply. Params are the middle parameters, normally
// starting with the target nickname; Text is the trailing text.
type Reply struct {
	Code   ReplyCode
	Params []string
	Text   string
}

// NewReply builds a reply addressed to target.
func NewReply(code ReplyCode, target string, text string, params ...string) *Reply {
	return &Reply{
		Code:   code,
		Params: append([]string{target}, params...),
		Text:   text,
	}
}

func (r *Reply) Verb() string {
	return fmt.Sprintf("%03d", int(r.Code))
}

func (r *Reply) Args() (Args, error) {
	if _, ok := replyNames[r.Code]; !ok {
		return Args{}, fmt.Errorf("%w: unknown reply code %d", ErrNotSerializable, r.Code)
	}
	if r.Text == "" {
		return middle(r.Params...), nil
	}
	return withText(r.Text, r.Params...), nil
}

func parseReply(code ReplyCode, raw *RawMessage) (Command, error) {
	r := &Reply{Code: code}
	params := raw.Params
	if raw.Trailing {
		r.Text = params[len(params)-1]
		params = params[:len(params)-1]
	}
	r.Params = append([]string(nil), params...)
	return r, nil
}
