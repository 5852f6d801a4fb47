package proxy

import (
	"slices"
	"strings"
)

type cmdKind uint8

const (
	// kindSingle commands carry their only routing key in args[1].
	kindSingle cmdKind = iota
	// kindMultiGet is MGET: one key per argument, array reply in key order.
	kindMultiGet
	// kindMultiCount commands take keys and reply with a count to be summed.
	kindMultiCount
	// kindMultiSet is MSET: key/value pairs, +OK reply.
	kindMultiSet
)

// cmdSpec describes a routable command. arity follows the Redis
// convention: positive means exactly that many arguments including the
// command name, negative means at least -arity.
type cmdSpec struct {
	arity int
	kind  cmdKind
}

func (c cmdSpec) arityOK(n int) bool {
	if c.arity >= 0 {
		return n == c.arity
	}
	if n < -c.arity {
		return false
	}
	if c.kind == kindMultiSet {
		return (n-1)%2 == 0
	}
	return true
}

// localCommands are answered by the proxy itself.
var localCommands = map[string]bool{
	"AUTH":    true,
	"COMMAND": true,
	"ECHO":    true,
	"PING":    true,
	"QUIT":    true,
	"SELECT":  true,
}

// commandTable lists every command the proxy routes to a shard.
// Commands that touch several keys in one call are only listed when the
// reply can be merged across shards.
var commandTable = map[string]cmdSpec{
	// Keys
	"DEL":         {-2, kindMultiCount},
	"UNLINK":      {-2, kindMultiCount},
	"EXISTS":      {-2, kindMultiCount},
	"TOUCH":       {-2, kindMultiCount},
	"TYPE":        {2, kindSingle},
	"EXPIRE":      {-3, kindSingle},
	"PEXPIRE":     {-3, kindSingle},
	"EXPIREAT":    {-3, kindSingle},
	"PEXPIREAT":   {-3, kindSingle},
	"EXPIRETIME":  {2, kindSingle},
	"PEXPIRETIME": {2, kindSingle},
	"TTL":         {2, kindSingle},
	"PTTL":        {2, kindSingle},
	"PERSIST":     {2, kindSingle},

	// Strings
	"GET":         {2, kindSingle},
	"SET":         {-3, kindSingle},
	"SETNX":       {3, kindSingle},
	"SETEX":       {4, kindSingle},
	"PSETEX":      {4, kindSingle},
	"GETSET":      {3, kindSingle},
	"GETDEL":      {2, kindSingle},
	"GETEX":       {-2, kindSingle},
	"GETRANGE":    {4, kindSingle},
	"SETRANGE":    {4, kindSingle},
	"APPEND":      {3, kindSingle},
	"STRLEN":      {2, kindSingle},
	"INCR":        {2, kindSingle},
	"INCRBY":      {3, kindSingle},
	"INCRBYFLOAT": {3, kindSingle},
	"DECR":        {2, kindSingle},
	"DECRBY":      {3, kindSingle},
	"MGET":        {-2, kindMultiGet},
	"MSET":        {-3, kindMultiSet},

	// Bitmaps
	"SETBIT":   {4, kindSingle},
	"GETBIT":   {3, kindSingle},
	"BITCOUNT": {-2, kindSingle},
	"BITPOS":   {-3, kindSingle},
	"BITFIELD": {-2, kindSingle},

	// Hashes
	"HSET":         {-4, kindSingle},
	"HSETNX":       {4, kindSingle},
	"HMSET":        {-4, kindSingle},
	"HGET":         {3, kindSingle},
	"HMGET":        {-3, kindSingle},
	"HDEL":         {-3, kindSingle},
	"HEXISTS":      {3, kindSingle},
	"HLEN":         {2, kindSingle},
	"HKEYS":        {2, kindSingle},
	"HVALS":        {2, kindSingle},
	"HGETALL":      {2, kindSingle},
	"HINCRBY":      {4, kindSingle},
	"HINCRBYFLOAT": {4, kindSingle},
	"HSTRLEN":      {3, kindSingle},
	"HRANDFIELD":   {-2, kindSingle},
	"HSCAN":        {-3, kindSingle},

	// Lists
	"LPUSH":   {-3, kindSingle},
	"RPUSH":   {-3, kindSingle},
	"LPUSHX":  {-3, kindSingle},
	"RPUSHX":  {-3, kindSingle},
	"LPOP":    {-2, kindSingle},
	"RPOP":    {-2, kindSingle},
	"LLEN":    {2, kindSingle},
	"LRANGE":  {4, kindSingle},
	"LINDEX":  {3, kindSingle},
	"LSET":    {4, kindSingle},
	"LREM":    {4, kindSingle},
	"LTRIM":   {4, kindSingle},
	"LINSERT": {5, kindSingle},
	"LPOS":    {-3, kindSingle},

	// Sets
	"SADD":        {-3, kindSingle},
	"SREM":        {-3, kindSingle},
	"SMEMBERS":    {2, kindSingle},
	"SISMEMBER":   {3, kindSingle},
	"SMISMEMBER":  {-3, kindSingle},
	"SCARD":       {2, kindSingle},
	"SPOP":        {-2, kindSingle},
	"SRANDMEMBER": {-2, kindSingle},
	"SSCAN":       {-3, kindSingle},

	// Sorted sets
	"ZADD":             {-4, kindSingle},
	"ZREM":             {-3, kindSingle},
	"ZSCORE":           {3, kindSingle},
	"ZMSCORE":          {-3, kindSingle},
	"ZINCRBY":          {4, kindSingle},
	"ZCARD":            {2, kindSingle},
	"ZCOUNT":           {4, kindSingle},
	"ZLEXCOUNT":        {4, kindSingle},
	"ZRANGE":           {-4, kindSingle},
	"ZRANGEBYSCORE":    {-4, kindSingle},
	"ZRANGEBYLEX":      {-4, kindSingle},
	"ZREVRANGE":        {-4, kindSingle},
	"ZREVRANGEBYSCORE": {-4, kindSingle},
	"ZREVRANGEBYLEX":   {-4, kindSingle},
	"ZRANK":            {-3, kindSingle},
	"ZREVRANK":         {-3, kindSingle},
	"ZREMRANGEBYRANK":  {4, kindSingle},
	"ZREMRANGEBYSCORE": {4, kindSingle},
	"ZREMRANGEBYLEX":   {4, kindSingle},
	"ZPOPMIN":          {-2, kindSingle},
	"ZPOPMAX":          {-2, kindSingle},
	"ZRANDMEMBER":      {-2, kindSingle},
	"ZSCAN":            {-3, kindSingle},

	// HyperLogLog. PFCOUNT over several keys would need a merge on one
	// node, so only the single-key form is routed.
	"PFADD":   {-2, kindSingle},
	"PFCOUNT": {2, kindSingle},
}

func lookupCommand(name string) (cmdSpec, bool) {
	spec, ok := commandTable[name]
	return spec, ok
}

// commandLabel returns the metrics label for name, keeping the label set
// bounded.
func commandLabel(name string) string {
	if _, ok := commandTable[name]; ok || localCommands[name] {
		return strings.ToLower(name)
	}
	return "unknown"
}

// Commands returns every command name the proxy accepts, sorted.
func Commands() []string {
	names := make([]string, 0, len(commandTable)+len(localCommands))
	for name := range commandTable {
		names = append(names, name)
	}
	for name := range localCommands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
