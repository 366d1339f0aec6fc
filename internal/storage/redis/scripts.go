package redis

const (
	// addSessionScript atomically adds a session id to a user's active set,
	// enforcing the concurrent-session cap at the key level. The set-level
	// TTL is re-applied on every call so a stale set self-heals as a whole
	// rather than being swept per element.
	addSessionScript = `
local set_key = KEYS[1]       -- user_sessions:{userID}

local session_id = ARGV[1]
local max_sessions = tonumber(ARGV[2])
local ttl_seconds = tonumber(ARGV[3])

-- Re-adding a known id is a no-op that still refreshes the TTL
if redis.call('SISMEMBER', set_key, session_id) == 1 then
  redis.call('EXPIRE', set_key, ttl_seconds)
  return 1
end

if max_sessions > 0 then
  local count = redis.call('SCARD', set_key)
  if count >= max_sessions then
    return 0
  end
end

redis.call('SADD', set_key, session_id)
redis.call('EXPIRE', set_key, ttl_seconds)

return 1
`

	// incrementDailyUsageScript atomically increments a day's usage counter
	// and refreshes its expiry so the counter disappears 24h after its last
	// write. A new UTC day starts from an absent key.
	incrementDailyUsageScript = `
local usage_key = KEYS[1]     -- user_daily_usage:{userID}:{date}

local minutes = tonumber(ARGV[1])
local ttl_seconds = tonumber(ARGV[2])

redis.call('INCRBY', usage_key, minutes)
redis.call('EXPIRE', usage_key, ttl_seconds)

return 'OK'
`
)
